package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prairiebio/genomehub/internal/store"
	"github.com/prairiebio/genomehub/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock store ---

type mockStore struct {
	pipelines map[uuid.UUID]*models.PipelineDefinition
	jobCounts map[uuid.UUID]int
	usage     map[uuid.UUID]int
}

func newMockStore() *mockStore {
	return &mockStore{
		pipelines: make(map[uuid.UUID]*models.PipelineDefinition),
		jobCounts: make(map[uuid.UUID]int),
		usage:     make(map[uuid.UUID]int),
	}
}

func (m *mockStore) CreatePipeline(_ context.Context, p *models.PipelineDefinition) error {
	cp := *p
	m.pipelines[p.ID] = &cp
	return nil
}

func (m *mockStore) GetPipeline(_ context.Context, id uuid.UUID) (*models.PipelineDefinition, error) {
	p, ok := m.pipelines[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockStore) ListPipelinesByDataType(_ context.Context, dataType string) ([]*models.PipelineDefinition, error) {
	var out []*models.PipelineDefinition
	for _, p := range m.pipelines {
		if !p.Public {
			continue
		}
		for _, dt := range p.Input.DataTypes {
			if dt == dataType {
				cp := *p
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (m *mockStore) UpdatePipeline(_ context.Context, p *models.PipelineDefinition) error {
	if _, ok := m.pipelines[p.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *p
	m.pipelines[p.ID] = &cp
	return nil
}

func (m *mockStore) DeletePipeline(_ context.Context, id uuid.UUID) error {
	if _, ok := m.pipelines[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.pipelines, id)
	return nil
}

func (m *mockStore) IncrementPipelineUsage(_ context.Context, id uuid.UUID) error {
	m.usage[id]++
	return nil
}

func (m *mockStore) CountJobsForPipeline(_ context.Context, id uuid.UUID) (int, error) {
	return m.jobCounts[id], nil
}

// --- helpers ---

func validDefinition(authorID uuid.UUID) *models.PipelineDefinition {
	return &models.PipelineDefinition{
		Name: "Differential Expression",
		Steps: []models.Step{
			{ID: "qc", Name: "Quality control", Tool: "fastqc"},
			{ID: "normalize", Name: "Normalization", Tool: "deseq2-normalize", DependsOn: []string{"qc"}},
			{ID: "test", Name: "Testing", Tool: "deseq2-test", DependsOn: []string{"normalize"}},
		},
		Input:             models.InputRequirements{DataTypes: []string{models.DataTypeRNASeq}, MinSamples: 6},
		OutputDescription: "DE table",
		EstimatedRuntime:  1800,
		AuthorID:          &authorID,
	}
}

// --- tests ---

func TestRegister_Defaults(t *testing.T) {
	c := New(newMockStore())
	author := uuid.New()

	p, err := c.Register(context.Background(), validDefinition(author))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, "1.0.0", p.Version)
	assert.Equal(t, 2, p.Compute.CPUCores)
	assert.Equal(t, 8, p.Compute.MemoryGB)
	assert.Equal(t, 50, p.Compute.StorageGB)
	assert.False(t, p.Public)
}

func TestRegister_Validation(t *testing.T) {
	c := New(newMockStore())
	author := uuid.New()

	cases := []struct {
		name   string
		mutate func(*models.PipelineDefinition)
		reason string
	}{
		{"empty name", func(p *models.PipelineDefinition) { p.Name = "  " }, "name"},
		{"no steps", func(p *models.PipelineDefinition) { p.Steps = nil }, "step list"},
		{"no data types", func(p *models.PipelineDefinition) { p.Input.DataTypes = nil }, "data type"},
		{"no output description", func(p *models.PipelineDefinition) { p.OutputDescription = "" }, "output description"},
		{"duplicate step id", func(p *models.PipelineDefinition) {
			p.Steps = append(p.Steps, models.Step{ID: "qc", Name: "Again"})
		}, "duplicate"},
		{"self dependency", func(p *models.PipelineDefinition) {
			p.Steps[0].DependsOn = []string{"qc"}
		}, "depends on itself"},
		{"forward reference", func(p *models.PipelineDefinition) {
			p.Steps[0].DependsOn = []string{"test"}
		}, "not an earlier step"},
		{"dependency cycle", func(p *models.PipelineDefinition) {
			p.Steps[0].DependsOn = []string{"normalize"}
		}, "not an earlier step"},
		{"unknown dependency", func(p *models.PipelineDefinition) {
			p.Steps[2].DependsOn = []string{"missing"}
		}, "not an earlier step"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := validDefinition(author)
			tc.mutate(def)

			_, err := c.Register(context.Background(), def)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Contains(t, verr.Reason, tc.reason)
		})
	}
}

func TestUpdate_BumpsMinorVersionOnStepChange(t *testing.T) {
	ms := newMockStore()
	c := New(ms)
	author := uuid.New()

	p, err := c.Register(context.Background(), validDefinition(author))
	require.NoError(t, err)

	newSteps := []models.Step{{ID: "only", Name: "Single step", Tool: "noop"}}
	updated, err := c.Update(context.Background(), p.ID, author, Patch{Steps: newSteps})
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", updated.Version)

	// A non-step patch leaves the version alone.
	desc := "updated description"
	updated, err = c.Update(context.Background(), p.ID, author, Patch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", updated.Version)
	assert.Equal(t, desc, updated.Description)
}

func TestUpdate_Guards(t *testing.T) {
	ms := newMockStore()
	c := New(ms)
	author := uuid.New()

	p, err := c.Register(context.Background(), validDefinition(author))
	require.NoError(t, err)

	name := "Renamed"

	_, err = c.Update(context.Background(), p.ID, uuid.New(), Patch{Name: &name})
	assert.ErrorIs(t, err, ErrPermission)

	ms.jobCounts[p.ID] = 1
	_, err = c.Update(context.Background(), p.ID, author, Patch{Name: &name})
	assert.ErrorIs(t, err, ErrInUse)
	ms.jobCounts[p.ID] = 0

	ms.pipelines[p.ID].SystemDefault = true
	_, err = c.Update(context.Background(), p.ID, author, Patch{Name: &name})
	assert.ErrorIs(t, err, ErrImmutable)
}

func TestPublish_OneWay(t *testing.T) {
	ms := newMockStore()
	c := New(ms)
	author := uuid.New()

	p, err := c.Register(context.Background(), validDefinition(author))
	require.NoError(t, err)

	published, err := c.Publish(context.Background(), p.ID, author)
	require.NoError(t, err)
	assert.True(t, published.Public)

	// Publishing twice is an error.
	_, err = c.Publish(context.Background(), p.ID, author)
	assert.ErrorIs(t, err, ErrAlreadyPublic)

	// Flipping back to private via Update is refused.
	private := false
	_, err = c.Update(context.Background(), p.ID, author, Patch{Public: &private})
	assert.ErrorIs(t, err, ErrAlreadyPublic)
}

func TestDelete_Guards(t *testing.T) {
	ms := newMockStore()
	c := New(ms)
	author := uuid.New()

	p, err := c.Register(context.Background(), validDefinition(author))
	require.NoError(t, err)

	assert.ErrorIs(t, c.Delete(context.Background(), p.ID, uuid.New()), ErrPermission)

	ms.jobCounts[p.ID] = 3
	assert.ErrorIs(t, c.Delete(context.Background(), p.ID, author), ErrInUse)
	ms.jobCounts[p.ID] = 0

	require.NoError(t, c.Delete(context.Background(), p.ID, author))
	_, err = c.GetByID(context.Background(), p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelete_SystemDefaultImmutable(t *testing.T) {
	ms := newMockStore()
	c := New(ms)
	author := uuid.New()

	p, err := c.Register(context.Background(), validDefinition(author))
	require.NoError(t, err)
	ms.pipelines[p.ID].SystemDefault = true

	assert.ErrorIs(t, c.Delete(context.Background(), p.ID, author), ErrImmutable)
}

func TestBumpMinor(t *testing.T) {
	assert.Equal(t, "1.1.0", bumpMinor("1.0.0"))
	assert.Equal(t, "2.4.0", bumpMinor("2.3.7"))
	assert.Equal(t, "1.1.0", bumpMinor("garbage"))
}
