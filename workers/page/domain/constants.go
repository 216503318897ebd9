package domain

const (
	CategoryAll = "all"

	// Element ids and classes the page components bind to
	IDFactsContainer         = "facts-container"
	IDFactsList              = "facts-list"
	IDLoading                = "loading"
	IDSignificantEventsList  = "significant-events-list"
	IDRecommendedReadingList = "recommended-reading-list"
	IDErrorMessage           = "error-message"
	IDFactSubmissionForm     = "factSubmissionForm"
	IDNotifyYes              = "notify_yes"
	RadioWantNotification    = "want_notification"
	ClassNotificationFields  = "notification-fields"
	ClassCategoryButton      = "category-button"
	ClassActive              = "active"
	AttrDataCategory         = "data-category"
	FieldCSRFToken           = "csrfmiddlewaretoken"
	HeaderCSRFToken          = "X-CSRFToken"
	PageVarGradYear          = "grad_year"

	// Placeholders and fallbacks
	NoFactsText        = "No facts available for this year."
	NoEventsText       = "No significant events found for this year."
	NoReadingText      = "No recommended reading available for this year."
	NoDescriptionText  = "No description available."
	NotCategorizedText = "Not categorized"
	LearnMoreText      = "Learn More"

	// User-facing messages
	MsgGradYearMissing    = "An error occurred: graduation year is not defined."
	MsgFetchFailedPrefix  = "Failed to fetch results: "
	MsgSubmitSuccess      = "Fact submitted successfully!"
	MsgSubmitErrorsHeader = "Error submitting fact:\n"
	MsgSubmitFailed       = "An error occurred while submitting the fact."

	// Page worker actions
	ActionPrerender  = "prerender"
	ActionSubmitFact = "submit_fact"

	// Redis Key Patterns
	RedisKeyRenders     = "nostalgia:%d:renders"
	RedisKeySubmissions = "nostalgia:%d:submissions"
	RedisKeyCategories  = "nostalgia:%d:categories"

	// Message Types
	MsgTypeSnapshot       = "snapshot"
	MsgTypeFactSubmission = "fact_submission"

	// Indexed record kinds
	KindFact  = "fact"
	KindEvent = "event"
	KindBook  = "book"
)
