package statements

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/statements/internal/accounting/shared"
)

//go:embed mappings/*.yaml
var mappingFiles embed.FS

var accountPatternRE = regexp.MustCompile(`^[0-9A-Za-z]+\*?$`)

// mappingFile is the authored layout of one standard.
type mappingFile struct {
	Standard      Standard                                            `yaml:"standard" validate:"required"`
	Version       string                                              `yaml:"version" validate:"required"`
	EffectiveFrom string                                              `yaml:"effective_from" validate:"required,datetime=2006-01-02"`
	CashAccounts  []string                                            `yaml:"cash_accounts" validate:"min=1,dive,account_pattern"`
	Statements    map[StatementType]map[SectionKey][]CategoryDefinition `yaml:"statements" validate:"required"`
}

// StandardInfo describes a loaded standard.
type StandardInfo struct {
	Standard      Standard        `json:"standard"`
	Version       string          `json:"version"`
	EffectiveFrom time.Time       `json:"effective_from"`
	Statements    []StatementType `json:"statements"`
}

type registryKey struct {
	standard  Standard
	statement StatementType
}

// Registry holds immutable mapping definitions keyed by standard and statement type.
type Registry struct {
	definitions map[registryKey]Definition
	standards   map[Standard]StandardInfo
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// DefaultRegistry loads the embedded mappings once per process.
func DefaultRegistry() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultRegistry, defaultErr = LoadRegistry(mappingFiles, "mappings/*.yaml")
	})
	return defaultRegistry, defaultErr
}

// LoadRegistry parses and validates every file matching pattern in fsys.
func LoadRegistry(fsys fs.FS, pattern string) (*Registry, error) {
	names, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no mapping files match %s", shared.ErrInvalidMapping, pattern)
	}
	sort.Strings(names)
	docs := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		docs = append(docs, data)
	}
	return NewRegistry(docs...)
}

// NewRegistry builds a registry from raw YAML documents, one standard each.
func NewRegistry(docs ...[]byte) (*Registry, error) {
	validate := newMappingValidator()
	reg := &Registry{
		definitions: make(map[registryKey]Definition),
		standards:   make(map[Standard]StandardInfo),
	}
	for i, data := range docs {
		var file mappingFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("%w: document %d: %v", shared.ErrInvalidMapping, i, err)
		}
		if err := reg.add(validate, file); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func newMappingValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("account_pattern", func(fl validator.FieldLevel) bool {
		return accountPatternRE.MatchString(fl.Field().String())
	})
	return v
}

func (r *Registry) add(validate *validator.Validate, file mappingFile) error {
	file.Standard = ParseStandard(string(file.Standard))
	if err := validate.Struct(file); err != nil {
		return mappingError(file.Standard, "", err)
	}
	if _, dup := r.standards[file.Standard]; dup {
		return fmt.Errorf("%w: standard %s defined twice", shared.ErrInvalidMapping, file.Standard)
	}
	effective, err := time.Parse(time.DateOnly, file.EffectiveFrom)
	if err != nil {
		return mappingError(file.Standard, "", err)
	}
	info := StandardInfo{Standard: file.Standard, Version: file.Version, EffectiveFrom: effective}
	for statement, sections := range file.Statements {
		if _, err := ParseStatementType(string(statement)); err != nil {
			return mappingError(file.Standard, statement, err)
		}
		allowed := make(map[SectionKey]bool)
		for _, key := range statement.Sections() {
			allowed[key] = true
		}
		def := Definition{
			Standard:      file.Standard,
			Version:       file.Version,
			EffectiveFrom: effective,
			Statement:     statement,
			CashAccounts:  file.CashAccounts,
			sections:      make(map[SectionKey][]CategoryDefinition, len(allowed)),
		}
		for key, cats := range sections {
			if !allowed[key] {
				return mappingError(file.Standard, statement, fmt.Errorf("section %s not allowed", key))
			}
			for _, cat := range cats {
				if err := validateCategory(validate, cat); err != nil {
					return mappingError(file.Standard, statement, fmt.Errorf("section %s: %w", key, err))
				}
			}
			def.sections[key] = cats
		}
		for key := range allowed {
			if def.sections[key] == nil {
				def.sections[key] = []CategoryDefinition{}
			}
		}
		r.definitions[registryKey{file.Standard, statement}] = def
		info.Statements = append(info.Statements, statement)
	}
	sort.Slice(info.Statements, func(i, j int) bool { return info.Statements[i] < info.Statements[j] })
	r.standards[file.Standard] = info
	return nil
}

func validateCategory(validate *validator.Validate, cat CategoryDefinition) error {
	if err := validate.Struct(cat); err != nil {
		return err
	}
	return walkLines(cat, func(cat CategoryDefinition, line LineDefinition) error {
		switch line.EffectiveKind() {
		case KindLine:
			if len(line.Accounts) == 0 {
				return fmt.Errorf("category %q line %q has no account patterns", cat.Name, line.Name)
			}
		case KindHeader, KindSubtotal:
			if len(line.Accounts) > 0 || len(line.Types) > 0 {
				return fmt.Errorf("category %q %s %q must not list accounts", cat.Name, line.Kind, line.Name)
			}
		case KindCalculation:
			if line.Ref == "" || len(line.Accounts) > 0 || len(line.Types) > 0 {
				return fmt.Errorf("category %q calculation %q needs a ref and no accounts", cat.Name, line.Name)
			}
		}
		return nil
	})
}

func walkLines(cat CategoryDefinition, fn func(CategoryDefinition, LineDefinition) error) error {
	for _, line := range cat.Lines {
		if err := fn(cat, line); err != nil {
			return err
		}
	}
	for _, child := range cat.Categories {
		if err := walkLines(child, fn); err != nil {
			return err
		}
	}
	return nil
}

func mappingError(std Standard, statement StatementType, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		err = fmt.Errorf("%s failed on %s", verrs[0].Namespace(), verrs[0].Tag())
	}
	if statement == "" {
		return fmt.Errorf("%w: %s: %v", shared.ErrInvalidMapping, std, err)
	}
	return fmt.Errorf("%w: %s/%s: %v", shared.ErrInvalidMapping, std, statement, err)
}

// Known reports whether the standard is loaded.
func (r *Registry) Known(std Standard) bool {
	if r == nil {
		return false
	}
	_, ok := r.standards[std]
	return ok
}

// Lookup returns the definition for the pair, if registered.
func (r *Registry) Lookup(std Standard, statement StatementType) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	def, ok := r.definitions[registryKey{std, statement}]
	return def, ok
}

// Definition resolves a mapping. An unknown standard is not-found; a known
// standard without the statement is a configuration fault.
func (r *Registry) Definition(std Standard, statement StatementType) (Definition, error) {
	if r == nil {
		return Definition{}, shared.ErrMappingNotConfigured
	}
	if _, ok := r.standards[std]; !ok {
		return Definition{}, fmt.Errorf("%w: %q", shared.ErrStandardNotFound, std)
	}
	def, ok := r.Lookup(std, statement)
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s/%s", shared.ErrMappingNotConfigured, std, statement)
	}
	return def, nil
}

// Standards lists loaded standards sorted by name.
func (r *Registry) Standards() []StandardInfo {
	if r == nil {
		return nil
	}
	out := make([]StandardInfo, 0, len(r.standards))
	for _, info := range r.standards {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Standard < out[j].Standard })
	return out
}
