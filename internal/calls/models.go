// Package calls holds the append-only call records and the category
// normalization / reporting logic built on top of them. Call rows are
// written by an external ingestion feed and never mutated here.
package calls

import "time"

// Call is one dial attempt. Stage increases monotonically as a number
// progresses through an engagement; the highest stage recorded for a number
// is its current outcome.
type Call struct {
	ID            int64  `json:"id" db:"id"`
	AssociationID int64  `json:"association_id" db:"client_campaign_model_id"`
	Number        string `json:"number" db:"number"`
	Transcription string `json:"transcription,omitempty" db:"transcription"`
	Stage         int    `json:"stage" db:"stage"`
	// ResponseCategory is the raw classification label; empty means the
	// call was never categorized.
	ResponseCategory string    `json:"response_category,omitempty" db:"response_category"`
	ListID           string    `json:"list_id,omitempty" db:"list_id"`
	Transferred      bool      `json:"transferred" db:"transferred"`
	Timestamp        time.Time `json:"timestamp" db:"timestamp"`
}

// TransferStats summarizes an association's call volume for the client
// landing view.
type TransferStats struct {
	TotalCalls         int64 `json:"total_calls"`
	CallsTransferred   int64 `json:"calls_transferred"`
	TransferPercentage int   `json:"transfer_percentage"`
}

// ComputeTransferStats derives the percentage, rounded to the nearest whole
// number; zero total yields zero percent.
func ComputeTransferStats(total, transferred int64) TransferStats {
	s := TransferStats{TotalCalls: total, CallsTransferred: transferred}
	if total > 0 {
		s.TransferPercentage = int((float64(transferred)/float64(total))*100 + 0.5)
	}
	return s
}
