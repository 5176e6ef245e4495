package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goerd/internal/ind"
	"github.com/dbsmedya/goerd/internal/state"
)

// ============================================================================
// Test Helpers
// ============================================================================

// writeShop creates a CSV dataset and a config pointing at it. It returns the
// config path and the data directory.
func writeShop(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	require.NoError(t, os.Mkdir(data, 0o755))

	files := map[string]string{
		"customers.csv": "id,name\n1,ann\n2,bob\n3,cy\n",
		"orders.csv":    "order_id,customer_id,amount\n10,1,1\n11,1,2\n12,2,2\n13,3,1\n",
		"regions.csv":   "region_id,label\n1,x\n2,y\n3,z\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(data, name), []byte(content), 0o644))
	}

	cfg := "source:\n" +
		"  kind: csv\n" +
		"  path: " + data + "\n" +
		"logging:\n" +
		"  level: error\n" +
		"  format: text\n" +
		"  output: stderr\n"
	cfgPath := filepath.Join(dir, "goerd.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath, data
}

// resetFlags restores flag variables between command runs.
func resetFlags() {
	cfgFile = "goerd.yaml"
	logLevel, logFormat, outputFormat, outputPath = "", "", "", ""
	workers = 0
	profileStages, profileState, profileINDFile = nil, "", ""
	filterState, filterStages, filterStrict, filterSave = "", nil, false, ""
	erdState = ""
	validateState, validateCountOnly = "", false
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

type jsonReport struct {
	Dataset     string     `json:"dataset"`
	ForeignKeys []ind.Pair `json:"foreign_keys"`
	LoadOrder   []string   `json:"load_order"`
}

func decodeReport(t *testing.T, out string) jsonReport {
	t.Helper()
	var r jsonReport
	require.NoError(t, json.Unmarshal([]byte(out), &r), out)
	return r
}

// ============================================================================
// Command registration
// ============================================================================

func TestCommandsAreAddedToRoot(t *testing.T) {
	want := []string{"profile", "plan", "validate", "tables", "filter", "erd", "version"}
	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, registered[name], "%s command should be added to root command", name)
	}
}

func TestCommandStructure(t *testing.T) {
	for _, c := range []*struct {
		name string
		use  string
		ok   bool
	}{
		{"profile", profileCmd.Use, profileCmd.RunE != nil},
		{"plan", planCmd.Use, planCmd.RunE != nil},
		{"validate", validateCmd.Use, validateCmd.RunE != nil},
		{"tables", tablesCmd.Use, tablesCmd.RunE != nil},
		{"filter", filterCmd.Use, filterCmd.RunE != nil},
		{"erd", erdCmd.Use, erdCmd.RunE != nil},
	} {
		assert.Equal(t, c.name, c.use)
		assert.True(t, c.ok, "%s has no RunE", c.name)
	}
}

func TestFilterCommandFlags(t *testing.T) {
	flags := filterCmd.Flags()

	stateFlag := flags.Lookup("state")
	require.NotNil(t, stateFlag)
	if stateFlag.Annotations != nil {
		assert.Contains(t, stateFlag.Annotations, "cobra_annotation_bash_completion_one_required_flag")
	}
	assert.NotNil(t, flags.Lookup("stage"))
	assert.NotNil(t, flags.Lookup("strict"))
	assert.NotNil(t, flags.Lookup("save"))
}

// ============================================================================
// profile
// ============================================================================

func TestProfile_JSON(t *testing.T) {
	cfgPath, _ := writeShop(t)
	dir := t.TempDir()
	statePath := filepath.Join(dir, "run.json")
	indPath := filepath.Join(dir, "ind.txt")

	out, err := execute(t, "profile", "--config", cfgPath, "--format", "json",
		"--state", statePath, "--ind-file", indPath)
	require.NoError(t, err)

	r := decodeReport(t, out)
	assert.Len(t, r.ForeignKeys, 6)
	assert.Contains(t, r.ForeignKeys, ind.Pair{Reference: "customers.id", Dependent: "orders.customer_id"})

	st, err := state.Load(statePath)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders", "regions"}, st.TableNames())
	assert.Len(t, st.InclusionDependencies, 9)

	lines, err := os.ReadFile(indPath)
	require.NoError(t, err)
	assert.Equal(t, 9, strings.Count(string(lines), "\n"))
}

func TestProfile_FullPipelineText(t *testing.T) {
	cfgPath, _ := writeShop(t)

	out, err := execute(t, "profile", "--config", cfgPath,
		"--stage", "primary_key,null,name_similarity,auto_increment")
	require.NoError(t, err)

	assert.Contains(t, out, "  [1] orders.customer_id -> customers.id\n")
	assert.Equal(t, 1, strings.Count(out, " -> "), "one foreign key survives every stage")
}

func TestProfile_OutputFile(t *testing.T) {
	cfgPath, _ := writeShop(t)
	reportPath := filepath.Join(t.TempDir(), "report.yaml")

	out, err := execute(t, "profile", "--config", cfgPath, "--format", "yaml", "--output", reportPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dependent: orders.customer_id")
}

func TestProfile_InvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("source:\n  kind: csv\n"), 0o644))

	_, err := execute(t, "profile", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.path")
}

func TestProfile_UnknownStage(t *testing.T) {
	cfgPath, _ := writeShop(t)

	_, err := execute(t, "profile", "--config", cfgPath, "--stage", "fuzzy")
	assert.Error(t, err)
}

// ============================================================================
// filter
// ============================================================================

func profileToState(t *testing.T, cfgPath string) string {
	t.Helper()
	statePath := filepath.Join(t.TempDir(), "run.json")
	_, err := execute(t, "profile", "--config", cfgPath, "--format", "json", "--state", statePath)
	require.NoError(t, err)
	return statePath
}

func TestFilter_NameSimilarity(t *testing.T) {
	cfgPath, _ := writeShop(t)
	statePath := profileToState(t, cfgPath)
	savePath := filepath.Join(t.TempDir(), "narrowed.json")

	out, err := execute(t, "filter", "--config", cfgPath, "--state", statePath,
		"--stage", "name_similarity", "--format", "json", "--save", savePath)
	require.NoError(t, err)

	r := decodeReport(t, out)
	assert.Equal(t, []ind.Pair{{Reference: "customers.id", Dependent: "orders.customer_id"}}, r.ForeignKeys)
	assert.Equal(t, []string{"customers", "orders", "regions"}, r.LoadOrder)

	saved, err := state.Load(savePath)
	require.NoError(t, err)
	assert.Len(t, saved.Filtered, 1)
	assert.Len(t, saved.StageLog, 3)

	original, err := state.Load(statePath)
	require.NoError(t, err)
	assert.Len(t, original.Filtered, 6, "input state is not rewritten without --save")
}

func TestFilter_StrictDrift(t *testing.T) {
	cfgPath, data := writeShop(t)
	statePath := profileToState(t, cfgPath)

	require.NoError(t, os.WriteFile(filepath.Join(data, "regions.csv"), []byte("region_id,label\n1,x\n"), 0o644))

	_, err := execute(t, "filter", "--config", cfgPath, "--state", statePath,
		"--stage", "null", "--strict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "changed: regions")

	_, err = execute(t, "filter", "--config", cfgPath, "--state", statePath, "--stage", "null")
	assert.NoError(t, err, "drift only warns without --strict")
}

func TestFilter_MissingState(t *testing.T) {
	cfgPath, _ := writeShop(t)

	_, err := execute(t, "filter", "--config", cfgPath, "--state", filepath.Join(t.TempDir(), "none.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no saved run")
}

// ============================================================================
// plan, validate, tables, erd
// ============================================================================

func TestPlan(t *testing.T) {
	cfgPath, _ := writeShop(t)

	out, err := execute(t, "plan", "--config", cfgPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Profiling Plan:")
	assert.Contains(t, out, "  orders     4     3\n")
	assert.Contains(t, out, "  Attributes:      7\n")
	assert.Contains(t, out, "  Filter stages:   primary_key -> null\n")
}

func TestValidate(t *testing.T) {
	cfgPath, _ := writeShop(t)

	out, err := execute(t, "validate", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "All checks passed")
}

func TestValidate_StateDrift(t *testing.T) {
	cfgPath, data := writeShop(t)
	statePath := profileToState(t, cfgPath)

	out, err := execute(t, "validate", "--config", cfgPath, "--state", statePath)
	require.NoError(t, err)
	assert.Contains(t, out, "Dataset matches")

	// Same row count, different value: only the hash notices.
	require.NoError(t, os.WriteFile(filepath.Join(data, "regions.csv"), []byte("region_id,label\n1,x\n2,y\n3,w\n"), 0o644))

	_, err = execute(t, "validate", "--config", cfgPath, "--state", statePath, "--count-only")
	require.NoError(t, err)

	out, err = execute(t, "validate", "--config", cfgPath, "--state", statePath)
	require.Error(t, err)
	assert.Contains(t, out, "changed: regions")
}

func TestValidate_EmptySource(t *testing.T) {
	cfgPath, data := writeShop(t)
	for _, name := range []string{"customers.csv", "orders.csv", "regions.csv"} {
		require.NoError(t, os.Remove(filepath.Join(data, name)))
	}

	out, err := execute(t, "validate", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, out, "TABLE_LISTING_CHECK")
}

func TestTables(t *testing.T) {
	cfgPath, _ := writeShop(t)

	out, err := execute(t, "tables", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "customers\t3\norders\t4\nregions\t3\n", out)
}

func TestERD_FromState(t *testing.T) {
	cfgPath, _ := writeShop(t)
	statePath := profileToState(t, cfgPath)

	out, err := execute(t, "erd", "--config", cfgPath, "--state", statePath, "--format", "json")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "erDiagram\n"), "erd always renders mermaid")
	assert.Contains(t, out, "customers ||--o{ orders")
}

func TestERD_Profiles(t *testing.T) {
	cfgPath, _ := writeShop(t)

	out, err := execute(t, "erd", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "string customer_id FK")
}
