package ai

import (
	"fmt"
	"strings"
)

// schemaHint describes the bookstore tables the model may query.
var schemaHint = []string{
	"books(id, title, genre, author_id, publisher, published_at, price)",
	"authors(id, name, country)",
	"customers(id, name, email, created_at)",
	"orders(id, customer_id, status, total, created_at)",
	"order_items(order_id, book_id, quantity, unit_price)",
	"inventory(book_id, stock, warehouse)",
}

const answerRules = `Reply with a single JSON object and nothing else:
{"answer": "...", "sql_query": "...", "suggested_questions": ["...", "..."], "query_result": "..."}
- answer: one or two sentences; wrap the key figure in **double asterisks**.
- sql_query: the PostgreSQL query that answers the question.
- suggested_questions: two or three short follow-up questions.
- query_result: a small plain-text table illustrating the expected result.`

// BuildSystemPrompt creates the system prompt for the DigiBook analyst.
func BuildSystemPrompt() string {
	var builder strings.Builder
	builder.WriteString("You are DigiBook Bot, an analyst for an online bookstore. ")
	builder.WriteString("You answer questions about the store's data by writing SQL against this schema:\n")
	for _, table := range schemaHint {
		builder.WriteString(fmt.Sprintf("- %s\n", table))
	}
	builder.WriteString("\n")
	builder.WriteString(answerRules)
	return builder.String()
}
