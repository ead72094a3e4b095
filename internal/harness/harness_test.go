package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopCatalog = "testdata/catalogs/shop.yaml"

func TestRun_ScenarioFiles(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRunWithGolden_DuplicateCapture(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/duplicate_capture.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	require.Len(t, result.Trace, 4)
}

func TestRun_TraceAlternatesInvocationAndCompletion(t *testing.T) {
	scenario := &Scenario{
		Name:        "alternating",
		Description: "two steps",
		Catalog:     shopCatalog,
		Flow: []FlowStep{
			{Invoke: "allocate", Args: map[string]any{"order": "O"}},
			{Invoke: "confirm", Args: map[string]any{"order": "O"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	require.Len(t, result.Trace, 4)
	for i, ev := range result.Trace {
		assert.Equal(t, int64(i+1), ev.Seq)
		if i%2 == 0 {
			assert.Equal(t, "invocation", ev.Type)
		} else {
			assert.Equal(t, "completion", ev.Type)
		}
	}
	assert.Equal(t, "ok", result.Trace[1].OutputCase)
	// PENDING cannot be confirmed.
	assert.Equal(t, "INVALID_TRANSITION", result.Trace[3].OutputCase)
	assert.Nil(t, result.Trace[3].Result)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
}

func TestRun_ExpectMismatch(t *testing.T) {
	tests := []struct {
		name    string
		expect  *ExpectClause
		wantErr string
	}{
		{
			name:    "wrong case",
			expect:  &ExpectClause{Case: "ORDER_NOT_FOUND"},
			wantErr: `expected case "ORDER_NOT_FOUND", got "ok"`,
		},
		{
			name:    "wrong result",
			expect:  &ExpectClause{Case: "ok", Result: map[string]any{"fulfillment_complete": false}},
			wantErr: "does not contain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario := &Scenario{
				Name:        "mismatch",
				Description: "expectation that does not hold",
				Catalog:     shopCatalog,
				Flow: []FlowStep{
					{Invoke: "allocate", Args: map[string]any{"order": "O"}, Expect: tt.expect},
				},
			}

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.False(t, result.Pass)
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0], tt.wantErr)
		})
	}
}

func TestRun_BadArgsAbort(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_args",
		Description: "order must be a string",
		Catalog:     shopCatalog,
		Flow: []FlowStep{
			{Invoke: "allocate", Args: map[string]any{"order": 7}},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBadArgs)
}

func TestRun_RunIDPrefix(t *testing.T) {
	scenario := &Scenario{
		Name:        "prefixed",
		Description: "custom run ids",
		Catalog:     shopCatalog,
		RunIDPrefix: "alloc",
		Flow: []FlowStep{
			{
				Invoke: "allocate",
				Args:   map[string]any{"order": "O"},
				Expect: &ExpectClause{Case: "ok", Result: map[string]any{"run_id": "alloc-1"}},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_RestockVariant(t *testing.T) {
	scenario := &Scenario{
		Name:        "variant_restock",
		Description: "restock an unknown variant",
		Catalog:     shopCatalog,
		Flow: []FlowStep{
			{
				Invoke: "restock",
				Args:   map[string]any{"product": "P", "variant": "6 Months", "units": []any{"X"}},
				Expect: &ExpectClause{Case: "VARIANT_NOT_FOUND"},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_MissingCatalog(t *testing.T) {
	scenario := &Scenario{
		Name:        "no_catalog_file",
		Description: "catalog path does not exist",
		Catalog:     "testdata/catalogs/absent.yaml",
		Flow:        []FlowStep{{Invoke: "allocate", Args: map[string]any{"order": "O"}}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load catalog")
}

func TestNormalize(t *testing.T) {
	got, err := normalize(map[string]any{"n": 3, "list": []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": float64(3), "list": []any{"a"}}, got)

	var empty map[string]any
	got, err = normalize(empty)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, got)

	got, err = normalize(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}
