package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spyRecorder struct {
	allowed int
	denied  int
}

func (r *spyRecorder) RecordDecision(role Role, kind ResourceKind, allowed bool) {
	if allowed {
		r.allowed++
	} else {
		r.denied++
	}
}

type spySink struct {
	reasons []string
}

func (s *spySink) RecordDenial(ctx context.Context, actor Actor, action Action, reason string) {
	s.reasons = append(s.reasons, reason)
}

func TestGatewayCheckPassesThroughOnAllow(t *testing.T) {
	recorder := &spyRecorder{}
	sink := &spySink{}
	gateway := NewGateway(newTestEngine(&stubResolver{}), nil, recorder, sink)

	err := gateway.Check(context.Background(), Actor{ID: 1, Username: "root", Role: RoleAdmin}, Create(KindClient), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, recorder.allowed)
	assert.Empty(t, sink.reasons)
}

func TestGatewayCheckConvertsDenyToTypedError(t *testing.T) {
	recorder := &spyRecorder{}
	sink := &spySink{}
	gateway := NewGateway(newTestEngine(&stubResolver{}), nil, recorder, sink)
	manager := Actor{ID: 2, Username: "mgr1", Role: RoleManager}

	err := gateway.Check(context.Background(), manager, Create(KindClient), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDenied)

	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, ReasonRoleNotPermitted, denied.Reason)
	assert.Equal(t, manager, denied.Actor)
	assert.Equal(t, 1, recorder.denied)
	assert.Equal(t, []string{ReasonRoleNotPermitted}, sink.reasons)
}

func TestGatewayCheckPropagatesEngineFaults(t *testing.T) {
	gateway := NewGateway(newTestEngine(&stubResolver{}), nil, nil, nil)
	sailor := Actor{ID: 7, Username: "alice", Role: RoleSailor}

	err := gateway.Check(context.Background(), sailor, Update(KindClient), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResourceRequired)
	assert.NotErrorIs(t, err, ErrDenied)
}

func TestGatewayAllowedExposesReason(t *testing.T) {
	gateway := NewGateway(newTestEngine(&stubResolver{}), nil, nil, nil)
	support := Actor{ID: 4, Username: "sam", Role: RoleSupport}

	decision, err := gateway.Allowed(context.Background(), support, Create(KindEvent), nil)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonRoleNotPermitted, decision.Reason)
}
