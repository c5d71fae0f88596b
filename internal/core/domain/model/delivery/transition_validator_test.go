package delivery_test

import (
	"errors"
	"testing"

	"lastmile/internal/core/domain/model/delivery"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionValidator_Validate(t *testing.T) {
	v := delivery.DefaultTransitionValidator()

	t.Run("PENDING to ASSIGNED is accepted", func(t *testing.T) {
		assert.NoError(t, v.Validate(delivery.StatusPending, delivery.StatusAssigned, delivery.TransitionOptions{}))
	})

	t.Run("PENDING to DELIVERED is rejected with allowed transitions", func(t *testing.T) {
		err := v.Validate(delivery.StatusPending, delivery.StatusDelivered, delivery.TransitionOptions{})

		require.ErrorIs(t, err, delivery.ErrInvalidTransition)
		var invalid *delivery.InvalidTransitionError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, delivery.StatusPending, invalid.CurrentStatus)
		assert.Equal(t, delivery.StatusDelivered, invalid.AttemptedStatus)
		assert.Equal(t,
			[]delivery.Status{delivery.StatusAssigned, delivery.StatusCancelled},
			invalid.AllowedTransitions)
		assert.Equal(t,
			"invalid status transition: cannot change status from PENDING to DELIVERED (allowed: [ASSIGNED, CANCELLED])",
			err.Error())
	})

	t.Run("same status is accepted for every status by default", func(t *testing.T) {
		for _, s := range delivery.AllStatuses() {
			assert.NoError(t, v.Validate(s, s, delivery.TransitionOptions{}), s.String())
		}
	})

	t.Run("same status goes through the table when disallowed", func(t *testing.T) {
		err := v.Validate(delivery.StatusAssigned, delivery.StatusAssigned,
			delivery.TransitionOptions{DisallowSameStatus: true})

		require.ErrorIs(t, err, delivery.ErrInvalidTransition)
	})

	t.Run("terminal statuses reject everything without override", func(t *testing.T) {
		for _, to := range delivery.AllStatuses() {
			if to == delivery.StatusDelivered {
				continue
			}
			err := v.Validate(delivery.StatusDelivered, to, delivery.TransitionOptions{})
			assert.ErrorIs(t, err, delivery.ErrInvalidTransition, to.String())
		}
	})

	t.Run("force override bypasses the table", func(t *testing.T) {
		err := v.Validate(delivery.StatusDelivered, delivery.StatusFailed,
			delivery.TransitionOptions{ForceOverride: true})

		assert.NoError(t, err)
	})

	t.Run("unknown current status is reported before anything else", func(t *testing.T) {
		err := v.Validate(delivery.Status(42), delivery.StatusPending,
			delivery.TransitionOptions{ForceOverride: true})

		require.ErrorIs(t, err, delivery.ErrUnknownStatus)
		var unknown *delivery.UnknownStatusError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, delivery.RoleCurrent, unknown.Role)
		assert.Equal(t, delivery.Status(42), unknown.Status)
	})

	t.Run("unknown target status is rejected even when equal to current", func(t *testing.T) {
		err := v.Validate(delivery.StatusPending, delivery.StatusUnknown, delivery.TransitionOptions{})

		var unknown *delivery.UnknownStatusError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, delivery.RoleTarget, unknown.Role)
	})
}

func TestNewTransitionValidator(t *testing.T) {
	t.Run("should reject a zero-value table", func(t *testing.T) {
		_, err := delivery.NewTransitionValidator(delivery.TransitionTable{})

		assert.ErrorIs(t, err, delivery.ErrTransitionTableIsNotConstructed)
	})

	t.Run("should enforce the injected table", func(t *testing.T) {
		table, err := delivery.NewTransitionTable(map[delivery.Status][]delivery.Status{
			delivery.StatusPickedUp: {delivery.StatusCancelled},
		})
		require.NoError(t, err)

		v, err := delivery.NewTransitionValidator(table)
		require.NoError(t, err)

		assert.NoError(t, v.Validate(delivery.StatusPickedUp, delivery.StatusCancelled, delivery.TransitionOptions{}))
		assert.Error(t, v.Validate(delivery.StatusPending, delivery.StatusAssigned, delivery.TransitionOptions{}))
	})
}
