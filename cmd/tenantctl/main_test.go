package main

import (
	"bytes"
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/tenant"
)

func newTestService(t *testing.T) *tenant.Service {
	t.Helper()
	svc, err := tenant.NewService(tenant.NewStore(nil))
	require.NoError(t, err)
	return svc
}

func TestDispatch_CreateThenToggle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	var stdout, stderr bytes.Buffer

	require.NoError(t, dispatch(ctx, svc, []string{"create", "-name", "Acme"}, &stdout, &stderr))
	out := stdout.String()
	assert.Contains(t, out, "name:      Acme")
	assert.Regexp(t, `api_key:   kg_\S+`, out)
	assert.Contains(t, stderr.String(), "not shown again")

	m := regexp.MustCompile(`tenant_id: (\S+)`).FindStringSubmatch(out)
	require.Len(t, m, 2)

	stdout.Reset()
	require.NoError(t, dispatch(ctx, svc, []string{"deactivate", "-id", m[1]}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "is now inactive")

	stdout.Reset()
	require.NoError(t, dispatch(ctx, svc, []string{"reactivate", "-id", m[1]}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "is now active")
}

func TestDispatch_Errors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	var stdout, stderr bytes.Buffer

	err := dispatch(ctx, svc, []string{"create"}, &stdout, &stderr)
	require.Error(t, err)

	err = dispatch(ctx, svc, []string{"deactivate", "-id", "not-a-uuid"}, &stdout, &stderr)
	require.ErrorContains(t, err, "invalid -id")

	err = dispatch(ctx, svc, []string{"promote"}, &stdout, &stderr)
	require.ErrorContains(t, err, "unknown command")
	assert.Contains(t, stderr.String(), "usage: tenantctl")
}

func TestRun_RequiresCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.ErrorContains(t, run(nil, &stdout, &stderr), "missing command")
}
