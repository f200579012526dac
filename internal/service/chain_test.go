package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gymkhana-api/internal/models"
)

func TestParseStagesValidChain(t *testing.T) {
	stages, err := ParseStages([]string{"JOINT_REGISTRAR_SA", "DEAN_SA"})
	require.NoError(t, err)
	require.Equal(t, []models.Stage{models.StageJointRegistrarSA, models.StageDeanSA}, stages)
}

func TestParseStagesNormalizesCase(t *testing.T) {
	stages, err := ParseStages([]string{" dean_sa "})
	require.NoError(t, err)
	require.Equal(t, []models.Stage{models.StageDeanSA}, stages)
}

func TestParseStagesRejectsEmpty(t *testing.T) {
	_, err := ParseStages(nil)
	require.Error(t, err)
}

func TestParseStagesRejectsUnknownStage(t *testing.T) {
	_, err := ParseStages([]string{"REGISTRAR_GENERAL"})
	require.Error(t, err)
}

func TestParseStagesRejectsDuplicates(t *testing.T) {
	_, err := ParseStages([]string{"DEAN_SA", "DEAN_SA"})
	require.Error(t, err)
}

func TestStartChainParksAtFirstStage(t *testing.T) {
	advance := StartChain([]models.Stage{models.StageJointRegistrarSA, models.StageDeanSA})
	require.Equal(t, models.StatusPendingJointRegistrar, advance.Status)
	require.True(t, advance.ChainChanged)
	require.NotNil(t, advance.Index)
	require.Equal(t, 0, *advance.Index)
	require.False(t, advance.Final)
}

func TestAdvanceChainWalksSelectedStages(t *testing.T) {
	zero := 0
	advance, err := AdvanceChain(ChainState{
		Status: models.StatusPendingJointRegistrar,
		Chain:  []models.Stage{models.StageJointRegistrarSA, models.StageDeanSA},
		Index:  &zero,
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingDean, advance.Status)
	require.Equal(t, 1, *advance.Index)
	require.False(t, advance.Final)

	one := 1
	final, err := AdvanceChain(ChainState{
		Status: models.StatusPendingDean,
		Chain:  []models.Stage{models.StageJointRegistrarSA, models.StageDeanSA},
		Index:  &one,
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, final.Status)
	require.True(t, final.Final)
}

func TestAdvanceChainLegacyFallback(t *testing.T) {
	advance, err := AdvanceChain(ChainState{Status: models.StatusPendingStudentAffairs})
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingDean, advance.Status)

	final, err := AdvanceChain(ChainState{Status: models.StatusPendingDean})
	require.NoError(t, err)
	require.True(t, final.Final)
	require.Equal(t, models.StatusApproved, final.Status)
}

func TestAdvanceChainRejectsNonPendingStatus(t *testing.T) {
	_, err := AdvanceChain(ChainState{Status: models.StatusDraft})
	require.Error(t, err)
}

func TestRequiredApproverMatching(t *testing.T) {
	approver, ok := RequiredApprover(models.StatusPendingPresident)
	require.True(t, ok)
	require.True(t, approver.Matches(models.Actor{Role: models.RoleGymkhana, SubRole: models.SubRolePresident}))
	require.False(t, approver.Matches(models.Actor{Role: models.RoleGymkhana, SubRole: models.SubRoleGS}))

	_, ok = RequiredApprover(models.StatusApproved)
	require.False(t, ok)
}
