package statemachine_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/transit/pkg/statemachine"
)

func TestBuilder_DefinitionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		build   func() (*statemachine.Machine, error)
		wantErr error
	}{
		{
			name: "empty state name",
			build: func() (*statemachine.Machine, error) {
				return statemachine.NewBuilder().State("", statemachine.NopHandler{}).Build()
			},
			wantErr: statemachine.ErrInvalidStateName,
		},
		{
			name: "nil handler",
			build: func() (*statemachine.Machine, error) {
				return statemachine.NewBuilder().State("idle", nil).Build()
			},
			wantErr: statemachine.ErrNilHandler,
		},
		{
			name: "unsupported condition",
			build: func() (*statemachine.Machine, error) {
				return statemachine.NewBuilder().
					State("idle", statemachine.NopHandler{}).
					When(42).To("busy").
					Build()
			},
			wantErr: statemachine.ErrInvalidCondition,
		},
		{
			name: "empty rule target",
			build: func() (*statemachine.Machine, error) {
				return statemachine.NewBuilder().
					State("idle", statemachine.NopHandler{}).
					When("go").To("").
					Build()
			},
			wantErr: statemachine.ErrInvalidStateName,
		},
		{
			name: "empty error state",
			build: func() (*statemachine.Machine, error) {
				return statemachine.NewBuilder().
					State("idle", statemachine.NopHandler{}).
					Error("").
					Build()
			},
			wantErr: statemachine.ErrInvalidStateName,
		},
		{
			name: "no states",
			build: func() (*statemachine.Machine, error) {
				return statemachine.NewBuilder().Build()
			},
			wantErr: statemachine.ErrNoInitialState,
		},
		{
			name: "invalid option",
			build: func() (*statemachine.Machine, error) {
				return statemachine.NewBuilder(statemachine.WithID(uuid.Nil)).
					State("idle", statemachine.NopHandler{}).
					Build()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := tt.build()
			require.Error(t, err)
			assert.Nil(t, m)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestBuilder_FirstErrorWins(t *testing.T) {
	t.Parallel()

	_, err := statemachine.NewBuilder().
		State("", statemachine.NopHandler{}).
		When(3.14).To("x").
		State("idle", nil).
		Build()
	assert.ErrorIs(t, err, statemachine.ErrInvalidStateName)
	assert.NotErrorIs(t, err, statemachine.ErrNilHandler)
}

func TestBuilder_OpenRuleIsNotRegistered(t *testing.T) {
	t.Parallel()

	b := statemachine.NewBuilder()
	s := b.State("idle", statemachine.NopHandler{})
	_ = s.When("dangling")
	s.When("go").To("busy")
	b.State("busy", statemachine.NopHandler{})

	m, err := b.Start(context.Background())
	require.NoError(t, err)

	err = m.Transit(context.Background(), "dangling")
	assert.True(t, statemachine.IsUndefinedTransitionError(err))

	require.NoError(t, m.Transit(context.Background(), "go"))
	assert.Equal(t, "busy", m.CurrentName())
}

func TestBuilder_Consumed(t *testing.T) {
	t.Parallel()

	b := statemachine.NewBuilder()
	b.State("idle", statemachine.NopHandler{})
	m, err := b.Build()
	require.NoError(t, err)
	require.NotNil(t, m)

	b.State("late", statemachine.NopHandler{})
	_, ok := m.State("late")
	assert.False(t, ok, "definitions after Build must not reach the machine")

	_, err = b.Build()
	assert.ErrorIs(t, err, statemachine.ErrBuilderConsumed)
}

func TestBuilder_InitialState(t *testing.T) {
	t.Parallel()

	t.Run("first state by default", func(t *testing.T) {
		t.Parallel()
		m := statemachine.NewBuilder().
			State("a", statemachine.NopHandler{}).
			State("b", statemachine.NopHandler{}).
			MustBuild()
		assert.Equal(t, "a", m.InitialState())
	})

	t.Run("init overrides", func(t *testing.T) {
		t.Parallel()
		m, err := statemachine.NewBuilder().
			State("a", statemachine.NopHandler{}).
			State("b", statemachine.NopHandler{}).
			Init("b").
			Start(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "b", m.CurrentName())
	})

	t.Run("init before states", func(t *testing.T) {
		t.Parallel()
		m := statemachine.NewBuilder().
			Init("b").
			State("a", statemachine.NopHandler{}).
			State("b", statemachine.NopHandler{}).
			MustBuild()
		assert.Equal(t, "b", m.InitialState())
	})
}

func TestBuilder_MustBuildPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		statemachine.NewBuilder().MustBuild()
	})
}

func TestBuilder_WithID(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	m := statemachine.NewBuilder(statemachine.WithID(id)).
		State("idle", statemachine.NopHandler{}).
		MustBuild()
	assert.Equal(t, id, m.ID())
}
