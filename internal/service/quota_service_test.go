package service

import (
	"context"
	"testing"

	"electivas/internal/apperror"
	"electivas/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeats(t *testing.T) {
	assert.Equal(t, 2, Seats{Reserved: 5, Occupied: 3}.Available())
	assert.True(t, Seats{Reserved: 5, Occupied: 4}.HasRoom())
	assert.False(t, Seats{Reserved: 5, Occupied: 5}.HasRoom())
	assert.Equal(t, 0, Seats{Reserved: 2, Occupied: 3}.Available())
	assert.False(t, Seats{}.HasRoom())
}

func TestDistribute(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	elective := env.seedElective("Robotics", model.ElectiveAprobado, 20)
	sis := env.seedProgram("SIS")
	ind := env.seedProgram("IND")

	res, err := env.ledger.Distribute(ctx, "", elective.ID.String(), DistributeQuotasRequest{
		Allocations: []QuotaAllocation{
			{ProgramID: sis.ID.String(), Seats: 12},
			{ProgramID: ind.ID.String(), Seats: 8},
		},
	})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Len(t, env.store.quotas, 2)
	assert.Equal(t, 1, env.notifier.count(EventQuotaUpdated))
	assert.Equal(t, 1, env.auditCount())

	seats, err := env.ledger.Available(ctx, elective.ID, sis.ID, model.AdmissionStates)
	require.NoError(t, err)
	assert.Equal(t, Seats{Reserved: 12}, seats)

	// Redistribution rewrites the existing row instead of adding one.
	_, err = env.ledger.Distribute(ctx, "", elective.ID.String(), DistributeQuotasRequest{
		Allocations: []QuotaAllocation{{ProgramID: sis.ID.String(), Seats: 10}},
	})
	require.NoError(t, err)
	assert.Len(t, env.store.quotas, 2)
	quota, err := env.ledger.GetQuota(ctx, elective.ID, sis.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, quota.ReservedSeats)
}

func TestDistribute_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("exceeds total seats counting untouched programs", func(t *testing.T) {
		env := newTestEnv(t)
		elective := env.seedElective("Robotics", model.ElectiveAprobado, 20)
		sis, ind := env.seedProgram("SIS"), env.seedProgram("IND")
		env.seedQuota(elective, sis, 10)

		_, err := env.ledger.Distribute(ctx, "", elective.ID.String(), DistributeQuotasRequest{
			Allocations: []QuotaAllocation{{ProgramID: ind.ID.String(), Seats: 11}},
		})
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		assert.Len(t, env.store.quotas, 1)
	})

	t.Run("elective not approved", func(t *testing.T) {
		env := newTestEnv(t)
		elective := env.seedElective("Robotics", model.ElectivePendiente, 20)
		sis := env.seedProgram("SIS")

		_, err := env.ledger.Distribute(ctx, "", elective.ID.String(), DistributeQuotasRequest{
			Allocations: []QuotaAllocation{{ProgramID: sis.ID.String(), Seats: 5}},
		})
		assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	})

	t.Run("program listed twice", func(t *testing.T) {
		env := newTestEnv(t)
		elective := env.seedElective("Robotics", model.ElectiveAprobado, 20)
		sis := env.seedProgram("SIS")

		_, err := env.ledger.Distribute(ctx, "", elective.ID.String(), DistributeQuotasRequest{
			Allocations: []QuotaAllocation{{ProgramID: sis.ID.String(), Seats: 5}, {ProgramID: sis.ID.String(), Seats: 2}},
		})
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	})

	t.Run("unknown program", func(t *testing.T) {
		env := newTestEnv(t)
		elective := env.seedElective("Robotics", model.ElectiveAprobado, 20)

		_, err := env.ledger.Distribute(ctx, "", elective.ID.String(), DistributeQuotasRequest{
			Allocations: []QuotaAllocation{{ProgramID: uuid.NewString(), Seats: 5}},
		})
		assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
		assert.Empty(t, env.store.quotas)
	})

	t.Run("below current occupancy", func(t *testing.T) {
		env := newTestEnv(t)
		elective := env.seedElective("Robotics", model.ElectiveAprobado, 20)
		sis := env.seedProgram("SIS")
		env.seedQuota(elective, sis, 3)
		env.seedRequest(env.seedStudent(&sis), elective, 1, model.RequestAceptado)
		env.seedRequest(env.seedStudent(&sis), elective, 1, model.RequestPendiente)

		_, err := env.ledger.Distribute(ctx, "", elective.ID.String(), DistributeQuotasRequest{
			Allocations: []QuotaAllocation{{ProgramID: sis.ID.String(), Seats: 1}},
		})
		assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

		quota, err := env.ledger.GetQuota(ctx, elective.ID, sis.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, quota.ReservedSeats)
	})
}

func TestGetQuotaMissing(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.ledger.GetQuota(context.Background(), uuid.New(), uuid.New())
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}
