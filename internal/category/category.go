// Package category defines the closed set of message categories and the
// handler bound to each one.
package category

import "strings"

// Category labels which specialized handler processes a message.
type Category string

const (
	Travel        Category = "travel"
	Schedule      Category = "schedule"
	Family        Category = "family"
	Todo          Category = "todo"
	Document      Category = "document"
	Email         Category = "email"
	ScheduleEmail Category = "scheduleemail"
	General       Category = "general"

	// Classifier is internal: it names the classification handler and is
	// never a dispatch destination.
	Classifier Category = "classifier"
)

// Handler describes the assistant bound to a category.
type Handler struct {
	Name        string
	Description string
}

// Handlers is the single category-to-handler lookup table. All dispatch
// sites consult this map; there are no per-site category chains.
var Handlers = map[Category]Handler{
	Travel:        {Name: "TravelAssistant", Description: "Messages about trips, vacations, flights, hotels, or any travel-related queries."},
	Schedule:      {Name: "CalendarAssistant", Description: "Messages about appointments, meetings, or time-specific events that don't involve sending emails."},
	Family:        {Name: "FamilyAssistant", Description: "Messages related to family members, relationships, or household matters."},
	Todo:          {Name: "TodoAssistant", Description: "Messages about tasks, to-do lists, or things that need to be done."},
	Document:      {Name: "DocumentAssistant", Description: "Messages about creating, editing, or managing documents, files, or paperwork."},
	Email:         {Name: "GmailAssistant", Description: "Messages about sending, responding to, or managing emails."},
	ScheduleEmail: {Name: "ScheduleEmailAssistant", Description: "Messages that involve both scheduling an event and sending an email about it."},
	General:       {Name: "GeneralAssistant", Description: "Messages that don't fit into the other categories."},
	Classifier:    {Name: "ClassifierAssistant", Description: "Classifies user inputs into appropriate categories."},
}

// Destinations returns the categories a message can be dispatched to,
// in a stable order suitable for prompts.
func Destinations() []Category {
	return []Category{Travel, Schedule, Family, Todo, Document, Email, ScheduleEmail, General}
}

// Parse coerces raw model output to a member of the category set.
// Anything unrecognized (empty string, multi-word answer, hallucinated
// label) becomes General. Parse never fails.
func Parse(raw string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if c == Classifier {
		return General
	}
	if _, ok := Handlers[c]; !ok {
		return General
	}
	return c
}

// HandlerName returns the assistant name for a category, falling back to
// the general handler for unknown values.
func HandlerName(c Category) string {
	if h, ok := Handlers[c]; ok {
		return h.Name
	}
	return Handlers[General].Name
}
