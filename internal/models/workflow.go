package models

// WorkflowStatus captures the lifecycle states shared by calendars and
// proposals. Both entities climb the same stage ladder; DRAFT is
// calendar-only and REVISION_REQUESTED is proposal-only.
type WorkflowStatus string

const (
	StatusDraft                 WorkflowStatus = "DRAFT"
	StatusPendingPresident      WorkflowStatus = "PENDING_PRESIDENT"
	StatusPendingStudentAffairs WorkflowStatus = "PENDING_STUDENT_AFFAIRS"
	StatusPendingJointRegistrar WorkflowStatus = "PENDING_JOINT_REGISTRAR"
	StatusPendingAssociateDean  WorkflowStatus = "PENDING_ASSOCIATE_DEAN"
	StatusPendingDean           WorkflowStatus = "PENDING_DEAN"
	StatusRevisionRequested     WorkflowStatus = "REVISION_REQUESTED"
	StatusApproved              WorkflowStatus = "APPROVED"
	StatusRejected              WorkflowStatus = "REJECTED"
)

// Stage names an approver role that may appear in a custom approval chain.
// Only the three Student-Affairs hierarchy stages are chain members.
type Stage string

const (
	StageJointRegistrarSA Stage = "JOINT_REGISTRAR_SA"
	StageAssociateDeanSA  Stage = "ASSOCIATE_DEAN_SA"
	StageDeanSA           Stage = "DEAN_SA"
)

// ChainStages lists the valid chain members in hierarchy order.
var ChainStages = []Stage{StageJointRegistrarSA, StageAssociateDeanSA, StageDeanSA}

// EntityKind tags approval log entries with the workflow they belong to.
type EntityKind string

const (
	EntityKindCalendar  EntityKind = "CALENDAR"
	EntityKindProposal  EntityKind = "PROPOSAL"
	EntityKindAmendment EntityKind = "AMENDMENT"
)

// ApprovalAction labels a logged transition.
type ApprovalAction string

const (
	ActionSubmitted         ApprovalAction = "SUBMITTED"
	ActionApproved          ApprovalAction = "APPROVED"
	ActionRejected          ApprovalAction = "REJECTED"
	ActionRevisionRequested ApprovalAction = "REVISION_REQUESTED"
)
