// Package merge folds local pairing records into platform assignment
// records for dashboard views.
package merge

import (
	"log/slog"

	"crowdboard/internal/domain"
	"crowdboard/internal/metrics"
)

// Records overlays pairings onto assignments. The assignments define the
// result's key set and order; pairings are matched by assignment id and
// their status surfaces as world_status. Pairings without a matching
// assignment are returned separately as orphans, in input order. Inputs
// are never mutated, and the result is never nil.
//
// When the same assignment id occurs in several pairings the last one wins.
func Records(assignments []domain.Assignment, pairings []domain.Pairing) ([]domain.AssignmentView, []domain.Pairing) {
	byID := make(map[string]domain.Pairing, len(pairings))
	for _, p := range pairings {
		byID[p.AssignmentID] = p
	}

	views := make([]domain.AssignmentView, 0, len(assignments))
	for _, a := range assignments {
		view := domain.AssignmentView{
			AssignmentID: a.AssignmentID,
			HITID:        a.HITID,
			WorkerID:     a.WorkerID,
			RunID:        a.RunID,
			Status:       a.Status,
			ApproveTime:  a.ApproveTime,
		}

		if p, ok := byID[a.AssignmentID]; ok {
			view.WorldStatus = &p.Status
			view.OnboardingID = p.OnboardingID
			view.ConversationID = p.ConversationID
			view.BonusAmount = &p.BonusAmount
			view.BonusText = &p.BonusText
			view.BonusPaid = &p.BonusPaid
			view.Notes = &p.Notes
			view.Hidden = &p.Hidden
			delete(byID, a.AssignmentID)
		}

		views = append(views, view)
	}

	orphans := make([]domain.Pairing, 0, len(byID))
	for _, p := range pairings {
		if _, ok := byID[p.AssignmentID]; ok {
			orphans = append(orphans, p)
			delete(byID, p.AssignmentID)
		}
	}

	return views, orphans
}

// ReportOrphans emits one diagnostic per orphan pairing. The scope names
// the query that produced the records, e.g. "run r_1607".
func ReportOrphans(scope string, orphans []domain.Pairing) {
	for _, p := range orphans {
		metrics.MergeDiagnosticsTotal.Inc()
		slog.Warn("Skipping pairing without matching assignment",
			"scope", scope,
			"assignment_id", p.AssignmentID,
			"worker_id", p.WorkerID,
		)
	}
}
