package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/gymkhana-api/internal/models"
	appErrors "github.com/noah-isme/gymkhana-api/pkg/errors"
)

// StageApprover identifies the role (and Gymkhana sub-role) that must act
// while an entity sits in a given pending status.
type StageApprover struct {
	Role    models.Role
	SubRole models.SubRole
}

// Matches reports whether the actor satisfies the approver requirement.
func (a StageApprover) Matches(actor models.Actor) bool {
	if actor.Role != a.Role {
		return false
	}
	return a.SubRole == "" || actor.SubRole == a.SubRole
}

// statusApprovers routes each pending status to its required approver.
// Calendars and proposals share this table.
var statusApprovers = map[models.WorkflowStatus]StageApprover{
	models.StatusPendingPresident:      {Role: models.RoleGymkhana, SubRole: models.SubRolePresident},
	models.StatusPendingStudentAffairs: {Role: models.RoleStudentAffairs},
	models.StatusPendingJointRegistrar: {Role: models.RoleJointRegistrarSA},
	models.StatusPendingAssociateDean:  {Role: models.RoleAssociateDeanSA},
	models.StatusPendingDean:           {Role: models.RoleDeanSA},
}

// stageStatuses maps a chain stage to the status that parks an entity at it.
var stageStatuses = map[models.Stage]models.WorkflowStatus{
	models.StageJointRegistrarSA: models.StatusPendingJointRegistrar,
	models.StageAssociateDeanSA:  models.StatusPendingAssociateDean,
	models.StageDeanSA:           models.StatusPendingDean,
}

// legacyNextStatus is the static fallback applied when an entity carries no
// custom chain (the historical direct-to-Dean path).
var legacyNextStatus = map[models.WorkflowStatus]models.WorkflowStatus{
	models.StatusPendingPresident:      models.StatusPendingStudentAffairs,
	models.StatusPendingStudentAffairs: models.StatusPendingDean,
	models.StatusPendingDean:           models.StatusApproved,
}

// RequiredApprover returns the approver for a pending status. The second
// return is false when the status accepts no approval action.
func RequiredApprover(status models.WorkflowStatus) (StageApprover, bool) {
	approver, ok := statusApprovers[status]
	return approver, ok
}

// approvalStageToken renders the pending role for persistence in the
// current_approval_stage column. Nil for terminal statuses.
func approvalStageToken(status models.WorkflowStatus) *string {
	approver, ok := statusApprovers[status]
	if !ok {
		return nil
	}
	token := string(approver.Role)
	return &token
}

// ParseStages validates a chain selection: every stage must be one of the
// Student-Affairs hierarchy stages, with no duplicates and at least one
// entry.
func ParseStages(raw []string) ([]models.Stage, error) {
	valid := make([]string, 0, len(models.ChainStages))
	for _, s := range models.ChainStages {
		valid = append(valid, string(s))
	}
	if len(raw) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("nextApprovalStages is required at the Student Affairs stage; choose from: %s", strings.Join(valid, ", ")))
	}
	seen := make(map[models.Stage]struct{}, len(raw))
	stages := make([]models.Stage, 0, len(raw))
	for _, entry := range raw {
		stage := models.Stage(strings.ToUpper(strings.TrimSpace(entry)))
		if _, ok := stageStatuses[stage]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("invalid approval stage %q; valid stages: %s", entry, strings.Join(valid, ", ")))
		}
		if _, dup := seen[stage]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("duplicate approval stage %q", entry))
		}
		seen[stage] = struct{}{}
		stages = append(stages, stage)
	}
	return stages, nil
}

// ChainState is the dynamic approval position shared by calendars and
// proposals.
type ChainState struct {
	Status models.WorkflowStatus
	Chain  []models.Stage
	Index  *int
}

// ChainAdvance is the outcome of one approval step. ChainChanged is set
// when a freshly selected chain must be persisted alongside the position.
type ChainAdvance struct {
	Status       models.WorkflowStatus
	Chain        []models.Stage
	Index        *int
	Stage        *string
	Final        bool
	ChainChanged bool
}

// StartChain parks the entity at the first stage of a freshly selected
// chain. Used when the Student-Affairs approver picks the onward route.
func StartChain(stages []models.Stage) ChainAdvance {
	first := 0
	status := stageStatuses[stages[0]]
	return ChainAdvance{
		Status:       status,
		Chain:        stages,
		Index:        &first,
		Stage:        approvalStageToken(status),
		ChainChanged: true,
	}
}

// AdvanceChain computes the next position after the current stage approves.
// A non-empty chain advances by index; exhausting it is final approval.
// Without a chain the legacy static table applies.
func AdvanceChain(state ChainState) (ChainAdvance, error) {
	if len(state.Chain) > 0 {
		if state.Index == nil {
			return ChainAdvance{}, appErrors.Clone(appErrors.ErrInternal, "approval chain present without an index")
		}
		next := *state.Index + 1
		if next >= len(state.Chain) {
			return ChainAdvance{Status: models.StatusApproved, Chain: state.Chain, Final: true}, nil
		}
		status := stageStatuses[state.Chain[next]]
		return ChainAdvance{
			Status: status,
			Chain:  state.Chain,
			Index:  &next,
			Stage:  approvalStageToken(status),
		}, nil
	}

	next, ok := legacyNextStatus[state.Status]
	if !ok {
		return ChainAdvance{}, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("no approval route from status %s", state.Status))
	}
	if next == models.StatusApproved {
		return ChainAdvance{Status: next, Final: true}, nil
	}
	return ChainAdvance{Status: next, Stage: approvalStageToken(next)}, nil
}

// stagesFromStrings converts persisted chain entries back to stages; rows
// are trusted to hold values written through ParseStages.
func stagesFromStrings(raw []string) []models.Stage {
	if len(raw) == 0 {
		return nil
	}
	stages := make([]models.Stage, 0, len(raw))
	for _, entry := range raw {
		stages = append(stages, models.Stage(entry))
	}
	return stages
}

// stagesToStrings renders stages for persistence.
func stagesToStrings(stages []models.Stage) []string {
	if len(stages) == 0 {
		return nil
	}
	raw := make([]string, 0, len(stages))
	for _, stage := range stages {
		raw = append(raw, string(stage))
	}
	return raw
}
