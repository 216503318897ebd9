package domain

const (
	// Message Types
	MsgTypeSnapshot       = "snapshot"
	MsgTypeFactSubmission = "fact_submission"

	// DynamoDB key patterns
	LatestSnapshotKey = "%d#%s"
	SubmissionsKey    = "%d#submissions"
)
