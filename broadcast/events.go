package broadcast

import (
	"time"

	"crowdcare-be/geomath"
)

// EventType enum for live status events.
type EventType string

const (
	StatusUpdate     EventType = "status_update"
	ResolutionUpdate EventType = "resolution_update"
	UpvoteUpdate     EventType = "upvote_update"
	CommentNew       EventType = "comment_new"
)

// StatusEvent is one committed state change, fanned out to every live
// subscriber of the report. ReportID and Sequence are always present so
// clients can de-duplicate; delivery is at-least-once.
type StatusEvent struct {
	Type     EventType              `json:"type"`
	ReportID string                 `json:"report_id"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
	Sequence uint64                 `json:"sequence"`
}

// NewStatusUpdateEvent describes an admin status transition.
func NewStatusUpdateEvent(reportID, oldStatus, newStatus, changedBy, notes string) StatusEvent {
	return StatusEvent{
		Type:     StatusUpdate,
		ReportID: reportID,
		Payload: map[string]interface{}{
			"old_status": oldStatus,
			"new_status": newStatus,
			"changed_by": changedBy,
			"notes":      notes,
			"updated_at": time.Now().UTC().Format(time.RFC3339),
		},
	}
}

// NewResolutionUpdateEvent describes a committed resolution with its
// geo-verified evidence.
func NewResolutionUpdateEvent(reportID, evidenceURL string, evidenceCoord geomath.Coordinate, distanceMeters float64, resolvedBy string) StatusEvent {
	return StatusEvent{
		Type:     ResolutionUpdate,
		ReportID: reportID,
		Payload: map[string]interface{}{
			"new_status":      "resolved",
			"evidence_url":    evidenceURL,
			"admin_coordinates": map[string]float64{
				"latitude":  evidenceCoord.Latitude,
				"longitude": evidenceCoord.Longitude,
			},
			"distance_meters": distanceMeters,
			"resolved_by":     resolvedBy,
			"resolved_at":     time.Now().UTC().Format(time.RFC3339),
		},
	}
}

// NewUpvoteUpdateEvent describes an upvote toggle. Action is "added" or
// "removed".
func NewUpvoteUpdateEvent(reportID string, totalUpvotes int64, userID, action string) StatusEvent {
	return StatusEvent{
		Type:     UpvoteUpdate,
		ReportID: reportID,
		Payload: map[string]interface{}{
			"total_upvotes": totalUpvotes,
			"user_id":       userID,
			"action":        action,
			"updated_at":    time.Now().UTC().Format(time.RFC3339),
		},
	}
}

// NewCommentEvent describes a freshly posted comment.
func NewCommentEvent(reportID, commentID, userID, userName, body string, createdAt time.Time) StatusEvent {
	return StatusEvent{
		Type:     CommentNew,
		ReportID: reportID,
		Payload: map[string]interface{}{
			"comment_id": commentID,
			"user_id":    userID,
			"user_name":  userName,
			"comment":    body,
			"created_at": createdAt.UTC().Format(time.RFC3339),
		},
	}
}
