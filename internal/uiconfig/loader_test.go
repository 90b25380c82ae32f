package uiconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collaboratorium/internal/schema"
)

const loaderMarkup = `
Table projects {
  id uuid [pk]
  version int
  name varchar [not null]
  description json
  created_by uuid
}

Table tag_groups {
  id varchar [pk]
  label varchar
  fields json
}
`

const loaderYAML = `
entities:
  projects:
    label: Projects
    fields:
      name:
        type: string
        label: Name
        required: true
      description:
        type: subform
        label: Description
        parameters:
          "1":
            summary:
              type: string
              label: Summary
            attachments:
              type: string
              label: Attachments
    meta:
      id:
        strategy: uuid
        readonly: true
      version:
        strategy: increment
`

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Parse(strings.NewReader(loaderMarkup))
	require.NoError(t, err)
	return s
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_OK(t *testing.T) {
	cfg, err := Load(writeTemp(t, loaderYAML), testSchema(t))
	require.NoError(t, err)

	ent := cfg.Entity("projects")
	require.NotNil(t, ent)
	assert.Equal(t, "Projects", ent.Label)
	assert.Equal(t, KindStaticSubform, ent.Fields.Fields["description"].Kind)
	assert.Equal(t, "uuid", ent.Meta["id"].Strategy)
	assert.True(t, ent.Meta["id"].ReadOnly)
}

func TestLoad_DraftRejected(t *testing.T) {
	_, err := Load(writeTemp(t, "draft: true\n"+loaderYAML), testSchema(t))
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Msg, "draft")

	// но LoadFile черновик читает — для ревью и линта
	cfg, err := LoadFile(writeTemp(t, "draft: true\n"+loaderYAML))
	require.NoError(t, err)
	assert.True(t, cfg.Draft)
}

func TestCheck_UnknownEntity(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
entities:
  ghosts:
    fields:
      name:
        type: string
`))
	require.NoError(t, err)
	err = cfg.Check(testSchema(t))
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "ghosts", ce.Path)
}

func TestCheck_UnknownField(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
entities:
  projects:
    fields:
      nickname:
        type: string
`))
	require.NoError(t, err)
	err = cfg.Check(testSchema(t))
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "projects.nickname", ce.Path)
}

func TestCheck_BadOptionSource(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
entities:
  projects:
    fields:
      description:
        type: subform
        parameters:
          source_table: nowhere
          value_column: id
          label_column: label
`))
	require.NoError(t, err)
	err = cfg.Check(testSchema(t))
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Msg, "nowhere")
}

func TestCheck_BadMetaColumn(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
entities:
  projects:
    fields:
      name:
        type: string
    meta:
      modified_at:
        strategy: now
`))
	require.NoError(t, err)
	err = cfg.Check(testSchema(t))
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "projects.modified_at", ce.Path)
}

func TestParseConfig_Empty(t *testing.T) {
	_, err := ParseConfig([]byte("{}"))
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Msg, "no entities")
}

func TestConfig_RoundTripThroughDocument(t *testing.T) {
	cfg, err := ParseConfig([]byte(loaderYAML))
	require.NoError(t, err)

	doc := cfg.asDocument()
	ents := doc["entities"].(map[string]any)
	require.Contains(t, ents, "projects")
	fields := ents["projects"].(map[string]any)["fields"].(map[string]any)
	desc := fields["description"].(map[string]any)
	params := desc["parameters"].(map[string]any)
	require.Contains(t, params, "1")
}
