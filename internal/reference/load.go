package reference

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Veraticus/tradewinds/internal/common"
	"github.com/Veraticus/tradewinds/internal/jsondoc"
	"github.com/Veraticus/tradewinds/internal/model"
)

//go:embed data/*.json schemas/*.json
var files embed.FS

const (
	tariffsFile     = "tariffs.json"
	agreementsFile  = "trade_agreements.json"
	countryRiskFile = "country_risk.json"
)

var (
	schemaOnce sync.Once
	schemas    map[string]*jsonschema.Schema
	schemaErr  error
)

// Paths points at reference data files on disk. Empty paths use the embedded defaults.
type Paths struct {
	Tariffs     string
	Agreements  string
	CountryRisk string
}

// Load reads, validates and decodes all three tables.
func Load(paths Paths) (*Tables, error) {
	tariffData, err := readFile(paths.Tariffs, tariffsFile)
	if err != nil {
		return nil, err
	}
	agreementData, err := readFile(paths.Agreements, agreementsFile)
	if err != nil {
		return nil, err
	}
	riskData, err := readFile(paths.CountryRisk, countryRiskFile)
	if err != nil {
		return nil, err
	}

	tariffs, err := ParseTariffs(tariffData)
	if err != nil {
		return nil, err
	}
	agreements, err := ParseAgreements(agreementData)
	if err != nil {
		return nil, err
	}
	risk, err := ParseCountryRisk(riskData)
	if err != nil {
		return nil, err
	}

	slog.Info("Reference data loaded",
		"tariffs", tariffs.Len(),
		"trade_agreements", len(agreements),
		"country_risks", len(risk))

	return &Tables{
		Tariffs:     tariffs,
		Agreements:  agreements,
		CountryRisk: risk,
	}, nil
}

// LoadDefaults decodes the embedded reference data.
func LoadDefaults() (*Tables, error) {
	return Load(Paths{})
}

func readFile(path, name string) ([]byte, error) {
	if path == "" {
		data, err := files.ReadFile("data/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded %s: %w", name, err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// ParseTariffs validates and decodes a tariff table, keeping file order.
func ParseTariffs(data []byte) (*TariffTable, error) {
	if err := validate(tariffsFile, data); err != nil {
		return nil, err
	}

	doc, err := jsondoc.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrInvalidReferenceData, tariffsFile, err)
	}
	m, _ := doc.Object()

	table := NewTariffTable()
	for _, code := range m.Keys() {
		raw, _ := m.Get(code)
		table.Add(code, model.TariffEntry{
			BaseDuty:       raw.Get("base_duty").FloatOr(0),
			AdditionalDuty: raw.Get("additional_duty").FloatOr(0),
		})
	}
	return table, nil
}

// ParseAgreements validates and decodes a trade agreement table. Values may be
// a bare discount percentage or an object carrying discount_percent.
func ParseAgreements(data []byte) (TradeAgreementTable, error) {
	if err := validate(agreementsFile, data); err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrInvalidReferenceData, agreementsFile, err)
	}

	table := make(TradeAgreementTable, len(raw))
	for key, value := range raw {
		var discount float64
		if err := json.Unmarshal(value, &discount); err == nil {
			table[key] = Agreement{DiscountPercent: discount}
			continue
		}

		var agreement Agreement
		if err := json.Unmarshal(value, &agreement); err != nil {
			return nil, fmt.Errorf("%w: agreement %s: %v", common.ErrInvalidReferenceData, key, err)
		}
		table[key] = agreement
	}
	return table, nil
}

// ParseCountryRisk validates and decodes a country risk table.
func ParseCountryRisk(data []byte) (CountryRiskTable, error) {
	if err := validate(countryRiskFile, data); err != nil {
		return nil, err
	}

	var table CountryRiskTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrInvalidReferenceData, countryRiskFile, err)
	}
	return table, nil
}

func validate(name string, data []byte) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return schemaErr
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrInvalidReferenceData, name, err)
	}
	if err := schemas[name].Validate(v); err != nil {
		return fmt.Errorf("%w: %s does not match schema: %v", common.ErrInvalidReferenceData, name, err)
	}
	return nil
}

func compileSchemas() {
	compiler := jsonschema.NewCompiler()
	schemas = make(map[string]*jsonschema.Schema)

	for _, name := range []string{tariffsFile, agreementsFile, countryRiskFile} {
		schemaName := name[:len(name)-len(".json")] + ".schema.json"
		b, err := files.ReadFile("schemas/" + schemaName)
		if err != nil {
			schemaErr = fmt.Errorf("read schema %s: %w", schemaName, err)
			return
		}
		if err := compiler.AddResource(schemaName, bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("add schema %s: %w", schemaName, err)
			return
		}
		schema, err := compiler.Compile(schemaName)
		if err != nil {
			schemaErr = fmt.Errorf("compile schema %s: %w", schemaName, err)
			return
		}
		schemas[name] = schema
	}
}
