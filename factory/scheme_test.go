package factory_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meritzGA/meritz-prize/factory"
	"github.com/meritzGA/meritz-prize/prize"
)

const configDoc = `{
  "schemes": [
    {
      "id": "w1",
      "name": " 3월 2주차 ",
      "type": "구간 시책",
      "file": "weekly.csv",
      "col_code": "설계사코드",
      "col_val": "실적",
      "tiers": [[100000, 100], [300000, 200]]
    },
    {
      "id": "b1",
      "name": "브릿지",
      "type": "브릿지 시책 (1기간: 시상 확정)",
      "file": "weekly.csv",
      "col_code": "설계사코드",
      "col_val_prev": "전월",
      "col_val_curr": "당월",
      "curr_req": 200000,
      "tiers": [[300000, 10]]
    },
    {
      "id": "b2",
      "name": "조건부",
      "type": "bridge_conditional",
      "file": "weekly.csv",
      "col_code": "설계사코드",
      "col_val_curr": "당월",
      "tiers": [[300000, 10]]
    },
    {
      "id": "c1",
      "name": "누계",
      "category": "cumulative",
      "type": "구간 시책",
      "file": "cum.csv",
      "col_code": "설계사코드",
      "col_val": "누계",
      "col_prize": "시상",
      "tiers": [[1, 1]]
    }
  ],
  "roster": {
    "file": "manager.csv",
    "col_manager": "지원매니저코드",
    "cols": [
      {"col": "실적", "type": "숫자", "condition": "> 0"},
      {"col": "비고", "type": "text", "condition": "> 0"}
    ],
    "goals": [{"col": "실적", "targets": [300000, 100000, 300000]}],
    "tags": [{"col": "실적", "condition": ">= 500000", "name": "우수"}]
  }
}`

func TestParseConfig_DecodesEveryKind(t *testing.T) {
	// GIVEN: A document with one scheme of every kind and a roster
	// WHEN: It is parsed
	// THEN: Each scheme gets the right rule and the roster conditions are parsed

	cfg, err := factory.NewSchemeFactory().ParseConfig([]byte(configDoc))
	require.NoError(t, err)
	require.Len(t, cfg.Schemes, 4)

	flat := cfg.Schemes[0]
	assert.Equal(t, "3월 2주차", flat.Name)
	assert.Equal(t, prize.FlatTier{ValueColumn: "실적"}, flat.Rule)
	require.Len(t, flat.Tiers, 2)
	assert.True(t, flat.Tiers[0].Threshold.Equal(decimal.NewFromInt(300000)))

	bridge, ok := cfg.Schemes[1].Rule.(prize.BridgeConfirmed)
	require.True(t, ok)
	assert.Equal(t, "전월", bridge.PriorColumn)
	assert.True(t, bridge.Requirement.Equal(decimal.NewFromInt(200000)))

	cond, ok := cfg.Schemes[2].Rule.(prize.BridgeConditional)
	require.True(t, ok)
	assert.True(t, cond.Requirement.Equal(prize.DefaultRequirement))

	cum := cfg.Schemes[3]
	assert.Equal(t, prize.KindPassthrough, cum.Kind())
	assert.Equal(t, prize.CategoryCumulative, cum.Category())
	assert.Empty(t, cum.Tiers)

	roster := cfg.Roster
	assert.True(t, roster.Enabled())
	require.Len(t, roster.Columns, 2)
	require.NotNil(t, roster.Columns[0].Filter)
	assert.Equal(t, prize.OpGreater, roster.Columns[0].Filter.Op)
	assert.Nil(t, roster.Columns[1].Filter, "text columns are never filtered")
	require.Len(t, roster.Goals[0].Targets, 2)
	assert.True(t, roster.Goals[0].Targets[0].Equal(decimal.NewFromInt(100000)))
	assert.Equal(t, "우수", roster.Tags[0].Name)
}

func TestParseConfig_LegacyArrayAndEmpty(t *testing.T) {
	f := factory.NewSchemeFactory()

	cfg, err := f.ParseConfig([]byte(`[{"name": "a", "file": "x.csv", "col_code": "c", "col_val": "v"}]`))
	require.NoError(t, err)
	require.Len(t, cfg.Schemes, 1)
	assert.Equal(t, prize.KindFlatTier, cfg.Schemes[0].Kind())
	_, err = uuid.Parse(cfg.Schemes[0].ID)
	assert.NoError(t, err, "schemes without an id get a UUID")

	cfg, err = f.ParseConfig([]byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Schemes)
}

func TestParseConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"unknown label", `[{"id": "x", "type": "구간시책"}]`, prize.ErrUnknownKind},
		{"unknown category", `[{"id": "x", "category": "monthly"}]`, prize.ErrUnknownKind},
		{"duplicate tiers", `[{"id": "x", "tiers": [[1, 1], [1, 2]]}]`, prize.ErrDuplicateThreshold},
		{"bad roster condition", `{"roster": {"tags": [{"col": "a", "condition": "x > 1", "name": "t"}]}}`, prize.ErrInvalidCondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.NewSchemeFactory().ParseConfig([]byte(tt.doc))
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, prize.IsClientError(err))
		})
	}
}

func TestParseConfig_SchemeErrorNamesField(t *testing.T) {
	_, err := factory.NewSchemeFactory().ParseConfig([]byte(`[{"id": "x", "tiers": [[1, 1], [1, 2]]}]`))

	var se *prize.SchemeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "x", se.SchemeID)
	assert.Equal(t, "tiers", se.Field)
}

func TestEncodeConfig_RoundTrip(t *testing.T) {
	// GIVEN: A parsed configuration
	// WHEN: It is encoded and parsed again
	// THEN: The configuration is unchanged

	f := factory.NewSchemeFactory()
	cfg, err := f.ParseConfig([]byte(configDoc))
	require.NoError(t, err)

	data, err := f.EncodeConfig(cfg)
	require.NoError(t, err)
	again, err := f.ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, f.ToJSON(cfg), f.ToJSON(again))
	assert.Contains(t, string(data), `"type": "bridge_confirmed"`)
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		category, label string
		want            prize.Kind
	}{
		{"", "", prize.KindFlatTier},
		{"weekly", factory.LabelFlatTier, prize.KindFlatTier},
		{"", factory.LabelBridgeConfirmed, prize.KindBridgeConfirmed},
		{"", factory.LabelBridgeConditional, prize.KindBridgeConditional},
		{"", factory.LabelCumulative, prize.KindPassthrough},
		{"cumulative", "anything", prize.KindPassthrough},
		{"", "passthrough", prize.KindPassthrough},
	}
	for _, tt := range tests {
		got, err := factory.ParseKind(tt.category, tt.label)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestNewScheme_Defaults(t *testing.T) {
	f := factory.NewSchemeFactory()

	weekly, err := f.NewScheme(prize.KindBridgeConfirmed, "weekly.csv", 3)
	require.NoError(t, err)
	assert.Equal(t, "신규 주차 시책 3", weekly.Name)
	assert.Equal(t, "weekly.csv", weekly.SourceTable)
	assert.Equal(t, prize.DefaultTiers(), weekly.Tiers)
	assert.True(t, weekly.Rule.(prize.BridgeConfirmed).Requirement.Equal(prize.DefaultRequirement))

	cum, err := f.NewScheme(prize.KindPassthrough, "", 1)
	require.NoError(t, err)
	assert.Equal(t, "신규 누계 항목 1", cum.Name)
	assert.Empty(t, cum.Tiers)

	_, err = f.NewScheme("bogus", "", 1)
	assert.ErrorIs(t, err, prize.ErrUnknownKind)
}

func TestParseTierText(t *testing.T) {
	tiers, err := factory.ParseTierText("100000, 100\n\n 500000,300 \nheader line\n200000,200")
	require.NoError(t, err)

	require.Len(t, tiers, 3)
	assert.Equal(t, "500000,300\n200000,200\n100000,100", factory.FormatTierText(tiers))
}

func TestParseTierText_Errors(t *testing.T) {
	_, err := factory.ParseTierText("100000,abc")
	assert.ErrorIs(t, err, prize.ErrInvalidTier)

	_, err = factory.ParseTierText("1,000,100")
	assert.ErrorIs(t, err, prize.ErrInvalidTier)

	_, err = factory.ParseTierText("100,1\n100,2")
	assert.ErrorIs(t, err, prize.ErrDuplicateThreshold)
}

func TestParseAmountText(t *testing.T) {
	d, err := factory.ParseAmountText(" 1,500,000 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.NewFromInt(1500000)))

	_, err = factory.ParseAmountText("lots")
	assert.ErrorIs(t, err, prize.ErrInvalidScheme)
}
