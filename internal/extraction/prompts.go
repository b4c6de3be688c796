package extraction

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/voice-budget/internal/domain"
)

// categoryListPrompt renders the closed category set as a quoted, comma-separated list.
func categoryListPrompt() string {
	quoted := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		quoted[i] = fmt.Sprintf("%q", string(c))
	}
	return strings.Join(quoted, ", ")
}

// buildExpensePrompt asks the model for a single expense object. Today's date is
// embedded as a literal so the model echoes it when the transcript has none.
func buildExpensePrompt(transcript string, today civil.Date) string {
	date := today.String()

	return "Parse the following voice input and extract expense information.\n" +
		"Return a JSON object with the following structure:\n" +
		"{\n" +
		"  \"amount\": number (extract numeric amount, if not found return null),\n" +
		"  \"category\": string (choose from: " + categoryListPrompt() + " - if not clear, choose \"Other\"),\n" +
		"  \"description\": string (brief description of the expense),\n" +
		"  \"date\": string (if mentioned, format as YYYY-MM-DD, otherwise return today's date: \"" + date + "\")\n" +
		"}\n\n" +
		"Voice input: " + fmt.Sprintf("%q", transcript) + "\n\n" +
		"Rules:\n" +
		"1. Only return valid JSON, no additional text\n" +
		"2. If amount is not clear, set it to null\n" +
		"3. Always provide a description based on the input\n" +
		"4. Choose the most appropriate category\n" +
		"5. If date is not mentioned, use today's date\n\n" +
		"Example inputs and outputs:\n" +
		"Input: \"I spent 25 dollars on lunch today\"\n" +
		"Output: {\"amount\": 25, \"category\": \"Food & Dining\", \"description\": \"lunch\", \"date\": \"" + date + "\"}\n\n" +
		"Input: \"bought coffee for 5 bucks\"\n" +
		"Output: {\"amount\": 5, \"category\": \"Food & Dining\", \"description\": \"coffee\", \"date\": \"" + date + "\"}\n"
}

// buildBudgetPrompt asks the model for a budget plan with one item per mentioned cost.
func buildBudgetPrompt(transcript string) string {
	return "Parse the following voice input and extract an event or trip budget.\n" +
		"Return a JSON object with the following structure:\n" +
		"{\n" +
		"  \"title\": string (short name of the event or trip, default \"" + DefaultBudgetTitle + "\"),\n" +
		"  \"type\": string (\"Trip\" if the input is about a trip, vacation, travel or visit, otherwise \"Event\"),\n" +
		"  \"items\": [\n" +
		"    {\n" +
		"      \"name\": string (what the money is for),\n" +
		"      \"category\": string (choose from: " + categoryListPrompt() + " - if not clear, choose \"Other\"),\n" +
		"      \"planned\": number (planned amount),\n" +
		"      \"notes\": string (optional details, empty string if none)\n" +
		"    }\n" +
		"  ]\n" +
		"}\n\n" +
		"Voice input: " + fmt.Sprintf("%q", transcript) + "\n\n" +
		"Rules:\n" +
		"1. Only return valid JSON, no additional text\n" +
		"2. Split multiple mentioned expenses into separate items, in the order they are mentioned\n" +
		"3. If an amount is not stated, estimate a reasonable cost\n" +
		"4. \"planned\" must be a number without currency symbols\n\n" +
		"Return ONLY valid raw JSON.\n" +
		"Do NOT wrap the response in code fences.\n" +
		"Output must begin with \"{\" and end with \"}\".\n"
}
