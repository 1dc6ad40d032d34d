package qa

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhouzirui/digibook-bot/internal/analysis/intent"
)

// Answer is what the endpoint sends back in the final event.
type Answer struct {
	Text               string   `json:"answer,omitempty"`
	SQLQuery           string   `json:"sql_query,omitempty"`
	SuggestedQuestions []string `json:"suggested_questions,omitempty"`
	QueryResult        string   `json:"query_result,omitempty"`
}

// ProgressFunc reports intermediate steps while an answer is produced.
type ProgressFunc func(step string)

// Answerer produces an answer for a catalogue question.
type Answerer interface {
	Answer(ctx context.Context, question string, progress ProgressFunc) (Answer, error)
}

type topicTemplate struct {
	summary   string
	sql       string
	preview   string
	followUps []string
}

var templates = map[intent.Topic]topicTemplate{
	intent.Books: {
		summary: "The catalogue currently lists **1,284 titles**; fiction is the largest genre.",
		sql:     "SELECT genre, COUNT(*) AS titles\nFROM books\nGROUP BY genre\nORDER BY titles DESC\nLIMIT 3;",
		preview: "genre       | titles\n------------+-------\nfiction     |    512\nscience     |    301\nhistory     |    187",
		followUps: []string{
			"Which genre grew fastest this year?",
			"How many books were published after 2020?",
			"Who publishes the most titles?",
		},
	},
	intent.Authors: {
		summary: "**Ursula Vance** has the most titles in the catalogue.",
		sql:     "SELECT a.name, COUNT(b.id) AS titles\nFROM authors a\nJOIN books b ON b.author_id = a.id\nGROUP BY a.name\nORDER BY titles DESC\nLIMIT 3;",
		preview: "name          | titles\n--------------+-------\nUrsula Vance  |     27\nTomas Okafor  |     19\nMei Lindqvist |     16",
		followUps: []string{
			"Which author sold the most copies?",
			"How many new authors joined this year?",
		},
	},
	intent.Orders: {
		summary: "There were **342 orders** in the last 7 days, 318 of them already shipped.",
		sql:     "SELECT status, COUNT(*) AS orders\nFROM orders\nWHERE created_at >= NOW() - INTERVAL '7 days'\nGROUP BY status;",
		preview: "status   | orders\n---------+-------\nshipped  |    318\npending  |     19\nrefunded |      5",
		followUps: []string{
			"What is the average order value?",
			"Which orders are still pending?",
			"How many orders were refunded this month?",
		},
	},
	intent.Customers: {
		summary: "DigiBook has **9,870 registered customers**; 1,204 joined in the last 30 days.",
		sql:     "SELECT COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '30 days') AS new_customers,\n       COUNT(*) AS total_customers\nFROM customers;",
		preview: "new_customers | total_customers\n--------------+----------------\n         1204 |            9870",
		followUps: []string{
			"Who are our top 5 customers by spend?",
			"How many customers ordered more than once?",
		},
	},
	intent.Revenue: {
		summary: "Revenue for the current month is **$48,215.40**, up 6% on last month.",
		sql:     "SELECT DATE_TRUNC('month', o.created_at) AS month, SUM(o.total) AS revenue\nFROM orders o\nGROUP BY month\nORDER BY month DESC\nLIMIT 2;",
		preview: "month      | revenue\n-----------+----------\n2026-10-01 | 48215.40\n2026-09-01 | 45486.22",
		followUps: []string{
			"Which books generated the most revenue?",
			"What is the revenue by genre?",
			"How does this compare to last year?",
		},
	},
	intent.Inventory: {
		summary: "**37 titles** are out of stock and 112 are below the restock threshold.",
		sql:     "SELECT COUNT(*) FILTER (WHERE stock = 0) AS out_of_stock,\n       COUNT(*) FILTER (WHERE stock BETWEEN 1 AND 5) AS low_stock\nFROM inventory;",
		preview: "out_of_stock | low_stock\n-------------+----------\n          37 |       112",
		followUps: []string{
			"Which out-of-stock titles sell best?",
			"When is the next restock scheduled?",
		},
	},
}

// Canned answers from fixed per-topic templates chosen by keyword intent.
type Canned struct{}

// NewCanned returns the heuristic answerer.
func NewCanned() *Canned {
	return &Canned{}
}

func (c *Canned) Answer(ctx context.Context, question string, progress ProgressFunc) (Answer, error) {
	if err := ctx.Err(); err != nil {
		return Answer{}, err
	}

	decision := intent.Analyze(question)
	report(progress, "Understanding your question...")

	tpl, ok := templates[decision.Topic]
	if !ok {
		return Answer{
			Text: fmt.Sprintf("I can answer questions about **books**, authors, orders, customers, revenue and inventory. I could not match %q to any of them.", strings.TrimSpace(question)),
			SuggestedQuestions: []string{
				"How many books are in the catalogue?",
				"What was revenue this month?",
				"How many orders shipped this week?",
			},
		}, nil
	}

	report(progress, "Generating SQL query...")
	report(progress, "Running query...")

	followUps := append([]string(nil), tpl.followUps...)
	for _, related := range decision.Ranked {
		if extra, ok := templates[related]; ok && len(extra.followUps) > 0 {
			followUps = append(followUps, extra.followUps[0])
		}
	}

	return Answer{
		Text:               tpl.summary,
		SQLQuery:           tpl.sql,
		SuggestedQuestions: followUps,
		QueryResult:        tpl.preview,
	}, nil
}

func report(progress ProgressFunc, step string) {
	if progress != nil {
		progress(step)
	}
}
