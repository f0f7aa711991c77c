package reconcile

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/vfg2006/trusted-etl/infrastructure/repository"
	"github.com/vfg2006/trusted-etl/internal/coercion"
	"github.com/vfg2006/trusted-etl/internal/domain"
)

// memTable guarda todas as colunas como texto, como o banco devolveria com ::TEXT.
type memTable struct {
	def   domain.Table
	types map[string]string
	rows  map[string]map[string]*string
}

func (t *memTable) keys() []string {
	keys := make([]string, 0, len(t.rows))
	for k := range t.rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// memWarehouse implementa os repositórios em memória. Cada método se comporta
// como uma transação: em caso de erro nada muda.
type memWarehouse struct {
	mu sync.Mutex

	model       domain.Model
	schemas     map[string]bool
	tables      map[string]*memTable
	constraints map[string]domain.Reference
	source      map[string][]map[string]*string

	pingErr        error
	loadErrs       []error
	convertErrs    []error
	addFKErr       error
	placeholderErr error
	countErr       error
	// lostRows some da contagem, simulando linhas perdidas depois da carga
	lostRows int64
}

var (
	_ repository.CatalogRepository = (*memWarehouse)(nil)
	_ repository.StagingRepository = (*memWarehouse)(nil)
	_ repository.FactRepository    = (*memWarehouse)(nil)
)

func newMemWarehouse(model domain.Model) *memWarehouse {
	return &memWarehouse{
		model:       model,
		schemas:     map[string]bool{},
		tables:      map[string]*memTable{},
		constraints: map[string]domain.Reference{},
		source:      map[string][]map[string]*string{},
	}
}

func str(s string) *string {
	return &s
}

// setSource define as linhas da origem de uma tabela, já com os nomes trusted.
func (w *memWarehouse) setSource(table domain.Table, rows ...map[string]*string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.source[table.Name] = rows
}

func (w *memWarehouse) table(name string) *memTable {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tables[name]
}

func (w *memWarehouse) value(table, key, column string) *string {
	t := w.table(table)
	if t == nil || t.rows[key] == nil {
		return nil
	}
	return t.rows[key][column]
}

func (w *memWarehouse) hasConstraint(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.constraints[name]
	return ok
}

func popErr(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (w *memWarehouse) ensureTable(def domain.Table) *memTable {
	t, ok := w.tables[def.Name]
	if ok {
		return t
	}
	t = &memTable{def: def, types: map[string]string{}, rows: map[string]map[string]*string{}}
	for _, c := range def.Columns {
		t.types[c.Name] = "text"
	}
	w.tables[def.Name] = t
	return t
}

// CatalogRepository

func (w *memWarehouse) Ping(context.Context) error {
	return w.pingErr
}

func (w *memWarehouse) EnsureSchema(_ context.Context, schema string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.schemas[schema] = true
	return nil
}

func (w *memWarehouse) EnsureTable(_ context.Context, table domain.Table) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ensureTable(table)
	return nil
}

func (w *memWarehouse) TableExists(_ context.Context, _ string, name string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.tables[name]
	return ok, nil
}

func (w *memWarehouse) CountRows(_ context.Context, table domain.Table) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.countErr != nil {
		return 0, w.countErr
	}
	t, ok := w.tables[table.Name]
	if !ok {
		return 0, fmt.Errorf("relation %q does not exist", table.Name)
	}
	return int64(len(t.rows)) - w.lostRows, nil
}

func (w *memWarehouse) ColumnTypes(_ context.Context, table domain.Table) (map[string]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	types := map[string]string{}
	if t, ok := w.tables[table.Name]; ok {
		for k, v := range t.types {
			types[k] = v
		}
	}
	return types, nil
}

func (w *memWarehouse) ConstraintExists(_ context.Context, _ domain.Table, constraint string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.constraints[constraint]
	return ok, nil
}

// StagingRepository

func (w *memWarehouse) Load(_ context.Context, table domain.Table, _ repository.Source) (domain.LoadResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := popErr(&w.loadErrs); err != nil {
		return domain.LoadResult{}, err
	}

	t := w.ensureTable(table)
	if table.Name == w.model.Fact.Name {
		w.constraints = map[string]domain.Reference{}
	}
	for col := range t.types {
		t.types[col] = "text"
	}

	// DISTINCT ON (chave): a primeira linha de cada chave vence, chave nula é ignorada.
	staged := make(map[string]map[string]*string)
	for _, row := range w.source[table.Name] {
		key := row[table.Key]
		if key == nil {
			continue
		}
		if _, seen := staged[*key]; seen {
			continue
		}
		cp := make(map[string]*string, len(row))
		for k, v := range row {
			cp[k] = v
		}
		staged[*key] = cp
	}

	res := domain.LoadResult{Policy: domain.LoadReplace}
	if len(t.rows) > 0 {
		res.Policy = domain.LoadMerge
	} else {
		t.rows = map[string]map[string]*string{}
	}

	for key, row := range staged {
		t.rows[key] = row
	}
	res.Upserted = int64(len(staged))
	res.Rows = int64(len(t.rows))
	return res, nil
}

// FactRepository

func (w *memWarehouse) ConvertColumns(_ context.Context, table domain.Table, columns []domain.Column) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := popErr(&w.convertErrs); err != nil {
		return err
	}

	t, ok := w.tables[table.Name]
	if !ok {
		return fmt.Errorf("relation %q does not exist", table.Name)
	}

	converted := make(map[string]map[string]*string)
	for key, row := range t.rows {
		converted[key] = map[string]*string{}
		for _, col := range columns {
			v, err := coercion.Convert(col.Kind, row[col.Name])
			if err != nil {
				return err
			}
			converted[key][col.Name] = render(v)
		}
	}

	for key, values := range converted {
		for col, v := range values {
			t.rows[key][col] = v
		}
	}
	for _, col := range columns {
		t.types[col.Name] = col.Kind.CatalogType()
	}
	return nil
}

// render devolve o valor como o ::TEXT do banco o mostraria.
func render(v any) *string {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return str(x.Format(time.DateOnly))
	case *apd.Decimal:
		return str(x.Text('f'))
	case string:
		return str(x)
	}
	return str(fmt.Sprint(v))
}

func (w *memWarehouse) DistinctValues(_ context.Context, table domain.Table, column, pattern string, limit int) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t, ok := w.tables[table.Name]
	if !ok {
		return nil, fmt.Errorf("relation %q does not exist", table.Name)
	}

	var re *regexp.Regexp
	if pattern != "" {
		re = regexp.MustCompile(pattern)
	}

	seen := map[string]bool{}
	values := make([]string, 0)
	for _, row := range t.rows {
		v := row[column]
		if v == nil || seen[*v] || (re != nil && !re.MatchString(*v)) {
			continue
		}
		seen[*v] = true
		values = append(values, *v)
	}
	sort.Strings(values)
	if limit > 0 && len(values) > limit {
		values = values[:limit]
	}
	return values, nil
}

func (w *memWarehouse) dangling(fact domain.Table, ref domain.Reference) map[string]int64 {
	counts := map[string]int64{}
	t, ok := w.tables[fact.Name]
	if !ok {
		return counts
	}
	dim := w.tables[ref.Dimension.Name]
	for _, row := range t.rows {
		v := row[ref.Column]
		if v == nil {
			continue
		}
		if dim != nil {
			if _, exists := dim.rows[*v]; exists {
				continue
			}
		}
		counts[*v]++
	}
	return counts
}

func (w *memWarehouse) DanglingReferences(_ context.Context, fact domain.Table, ref domain.Reference) (map[string]int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dangling(fact, ref), nil
}

func (w *memWarehouse) InsertPlaceholders(_ context.Context, fact domain.Table, ref domain.Reference, sentinel string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.placeholderErr != nil {
		return 0, w.placeholderErr
	}

	dim, ok := w.tables[ref.Dimension.Name]
	if !ok {
		return 0, fmt.Errorf("relation %q does not exist", ref.Dimension.Name)
	}

	var inserted int64
	for key := range w.dangling(fact, ref) {
		row := map[string]*string{ref.Dimension.Key: str(key)}
		for _, attr := range ref.Dimension.AttributeNames() {
			row[attr] = str(sentinel)
		}
		dim.rows[key] = row
		inserted++
	}
	return inserted, nil
}

func (w *memWarehouse) NullDanglingReferences(_ context.Context, fact domain.Table, ref domain.Reference) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t, ok := w.tables[fact.Name]
	if !ok {
		return 0, nil
	}
	dim := w.tables[ref.Dimension.Name]

	var nulled int64
	for _, row := range t.rows {
		v := row[ref.Column]
		if v == nil {
			continue
		}
		if dim != nil {
			if _, exists := dim.rows[*v]; exists {
				continue
			}
		}
		row[ref.Column] = nil
		nulled++
	}
	return nulled, nil
}

func (w *memWarehouse) AddForeignKeys(_ context.Context, fact domain.Table, refs []domain.Reference) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.addFKErr != nil {
		return w.addFKErr
	}
	for _, ref := range refs {
		if _, exists := w.constraints[ref.Constraint]; exists {
			return fmt.Errorf("constraint %q already exists", ref.Constraint)
		}
		if len(w.dangling(fact, ref)) > 0 {
			return fmt.Errorf("insert or update on table %q violates foreign key constraint %q", fact.Name, ref.Constraint)
		}
	}
	for _, ref := range refs {
		w.constraints[ref.Constraint] = ref
	}
	return nil
}

// memRunLog é o histórico de execuções em memória.
type memRunLog struct {
	mu   sync.Mutex
	runs []*domain.RunSummary
	err  error
}

var _ repository.RunLogRepository = (*memRunLog)(nil)

func (l *memRunLog) EnsureTable(context.Context) error {
	return nil
}

func (l *memRunLog) Start(_ context.Context, run *domain.RunSummary) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	cp := *run
	l.runs = append(l.runs, &cp)
	return nil
}

func (l *memRunLog) Finish(_ context.Context, run *domain.RunSummary) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, r := range l.runs {
		if r.ID == run.ID {
			cp := *run
			l.runs[i] = &cp
			return nil
		}
	}
	return errors.New("execução não encontrada")
}

func (l *memRunLog) Latest(_ context.Context, target domain.TargetKind) (*domain.RunSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.runs) - 1; i >= 0; i-- {
		if l.runs[i].Target == target {
			cp := *l.runs[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (l *memRunLog) List(_ context.Context, limit int) ([]*domain.RunSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	runs := make([]*domain.RunSummary, 0, len(l.runs))
	for i := len(l.runs) - 1; i >= 0; i-- {
		cp := *l.runs[i]
		runs = append(runs, &cp)
		if limit > 0 && len(runs) == limit {
			break
		}
	}
	return runs, nil
}
