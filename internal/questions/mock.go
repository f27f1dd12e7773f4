package questions

import (
	"time"

	"alfapte/internal/domain"
)

// MockSpeakingQuestions is the fixed sample set served when the store is
// unreachable or empty. Copies are returned so callers cannot mutate it.
func MockSpeakingQuestions() []domain.Question {
	now := time.Now()
	return []domain.Question{
		{
			ID:    "1001644",
			Title: "Road bicycle racing",
			Type:  "read_aloud",
			PromptText: "Road bicycle racing is the cycle sports discipline of road cycling, held on paved roads. " +
				"Road racing is the most popular professional form of bicycle racing in terms of numbers of competitors, " +
				"event, and spectators. The two most common competition formats are mass start events, where riders start " +
				"simultaneously and race to set finish point; and time trials, where individual riders or teams race a " +
				"course alone against the clock.",
			Difficulty:         "medium",
			Tags:               []string{"sports", "cycling"},
			IsActive:           true,
			PreparationSeconds: 35,
			ResponseSeconds:    35,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
		{
			ID:    "1001643",
			Title: "Coconut oil",
			Type:  "read_aloud",
			PromptText: "Coconut oil is an edible oil extracted from the kernel or meat of mature coconuts harvested " +
				"from the coconut palm. It has various applications in food, medicine, and industry. Because of its high " +
				"saturated fat content, it is slow to oxidize and resistant to rancidification, lasting up to six months " +
				"without spoiling.",
			Difficulty:         "medium",
			Tags:               []string{"food", "health"},
			IsActive:           true,
			PreparationSeconds: 35,
			ResponseSeconds:    35,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
		{
			ID:    "1001642",
			Title: "Shrimp Farmers V2",
			Type:  "read_aloud",
			PromptText: "Shrimp farming has grown from a small-scale rural activity to become a major global industry. " +
				"It provides employment and income for millions of people around the world. However, intensive shrimp " +
				"farming can have negative environmental impacts including mangrove destruction and water pollution.",
			Difficulty:         "medium",
			Tags:               []string{"agriculture", "environment"},
			IsActive:           true,
			PreparationSeconds: 35,
			ResponseSeconds:    35,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
	}
}

// MockWritingQuestions is the writing-task counterpart of the sample set.
func MockWritingQuestions() []domain.Question {
	now := time.Now()
	return []domain.Question{
		{
			ID:    "2001001",
			Title: "Remote work",
			Type:  "essay",
			PromptText: "Many companies now allow employees to work from home permanently. Discuss the advantages and " +
				"disadvantages of remote work for both employers and employees, and give your own opinion.",
			Difficulty: "medium",
			Tags:       []string{"work", "society"},
			IsActive:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		{
			ID:    "2001002",
			Title: "Urban green spaces",
			Type:  "summarize_written_text",
			PromptText: "Urban green spaces such as parks and community gardens provide measurable benefits to city " +
				"residents, from cleaner air and lower ambient temperatures to improved mental health. Yet as cities " +
				"densify, these spaces face mounting pressure from commercial and residential development. Summarize the " +
				"passage in one sentence.",
			Difficulty: "medium",
			Tags:       []string{"environment", "cities"},
			IsActive:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}
}
