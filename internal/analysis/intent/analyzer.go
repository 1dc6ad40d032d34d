package intent

import (
	"sort"
	"strings"
)

// Topic is the catalogue area a question is about.
type Topic string

const (
	General   Topic = "general"
	Books     Topic = "books"
	Authors   Topic = "authors"
	Orders    Topic = "orders"
	Customers Topic = "customers"
	Revenue   Topic = "revenue"
	Inventory Topic = "inventory"
)

// Decision is the outcome of classifying one question.
type Decision struct {
	Topic Topic
	Score int
	// Ranked lists the runner-up topics by descending score.
	Ranked []Topic
}

var keywordBuckets = map[Topic][]string{
	Books: {
		"book", "books", "title", "titles", "genre", "isbn", "edition", "novel", "publisher", "bestseller",
		"page count", "published",
	},
	Authors: {
		"author", "authors", "writer", "wrote", "written by", "pen name", "biography",
	},
	Orders: {
		"order", "orders", "purchase", "purchased", "bought", "shipment", "shipped", "delivery", "checkout",
		"cart", "refund", "return",
	},
	Customers: {
		"customer", "customers", "client", "member", "members", "signup", "signed up", "loyalty", "user", "users",
		"reader", "readers",
	},
	Revenue: {
		"revenue", "sales", "income", "profit", "earned", "price", "prices", "discount", "total amount", "average order",
		"money",
	},
	Inventory: {
		"stock", "inventory", "warehouse", "in stock", "out of stock", "restock", "copies", "available",
	},
}

// superlatives nudge aggregate questions toward the revenue bucket.
var superlatives = []string{"top", "most", "best", "highest", "lowest", "least"}

// Analyze classifies a question into a Topic.
func Analyze(question string) Decision {
	normalized := strings.TrimSpace(strings.ToLower(question))
	if normalized == "" {
		return Decision{Topic: General}
	}

	scores := make(map[Topic]int)
	for topic, keywords := range keywordBuckets {
		for _, word := range keywords {
			if containsWord(normalized, word) {
				scores[topic] += 3
			}
		}
	}

	for _, word := range superlatives {
		if containsWord(normalized, word) && scores[Revenue] > 0 {
			scores[Revenue] += 2
			break
		}
	}

	ranked := make([]Topic, 0, len(scores))
	for topic, s := range scores {
		if s > 0 {
			ranked = append(ranked, topic)
		}
	}
	// Ties resolve alphabetically so the result is stable.
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	if len(ranked) == 0 {
		return Decision{Topic: General}
	}

	return Decision{Topic: ranked[0], Score: scores[ranked[0]], Ranked: ranked[1:]}
}

func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	for idx >= 0 {
		end := idx + len(word)
		if (idx == 0 || !isLetter(text[idx-1])) && (end == len(text) || !isLetter(text[end])) {
			return true
		}
		next := strings.Index(text[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += next + 1
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
