package engine

import (
	"context"
	"sort"

	"github.com/tabletoplab/gamescout/internal/storage"
	"github.com/tabletoplab/gamescout/pkg/types"
)

// memProviders implements all four storage provider interfaces in
// memory for engine tests. Optional injected errors simulate provider
// outages.
type memProviders struct {
	games       map[int64]*types.Game
	vectors     map[int64][]float32
	collections map[string][]int64

	vectorErr  error
	catalogErr error
}

func (m *memProviders) providers() storage.Providers {
	return storage.Providers{
		Embeddings:  m,
		Facets:      m,
		Collections: m,
		Catalog:     m,
	}
}

func (m *memProviders) VectorOf(ctx context.Context, gameID int64) ([]float32, error) {
	if m.vectorErr != nil {
		return nil, m.vectorErr
	}
	v, ok := m.vectors[gameID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return v, nil
}

func (m *memProviders) Nearest(ctx context.Context, vector []float32, k int) ([]storage.Neighbor, error) {
	if m.vectorErr != nil {
		return nil, m.vectorErr
	}
	neighbors := make([]storage.Neighbor, 0, len(m.vectors))
	for id, v := range m.vectors {
		neighbors = append(neighbors, storage.Neighbor{
			GameID:     id,
			Similarity: storage.CosineSimilarity(vector, v),
		})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Similarity != neighbors[j].Similarity {
			return neighbors[i].Similarity > neighbors[j].Similarity
		}
		return neighbors[i].GameID < neighbors[j].GameID
	})
	if k < len(neighbors) {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

func (m *memProviders) Dimension(ctx context.Context) (int, string, error) {
	return 3, "test-embed-v1", nil
}

func (m *memProviders) FacetsOf(ctx context.Context, gameID int64, facet types.Facet) (types.FacetSet, error) {
	g, ok := m.games[gameID]
	if !ok {
		return nil, nil
	}
	return g.FacetSetOf(facet), nil
}

func (m *memProviders) CollectionOf(ctx context.Context, userID string) ([]int64, error) {
	return m.collections[userID], nil
}

func (m *memProviders) Lookup(ctx context.Context, gameID int64) (*types.Game, error) {
	if m.catalogErr != nil {
		return nil, m.catalogErr
	}
	g, ok := m.games[gameID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return g, nil
}

func (m *memProviders) AllIDs(ctx context.Context) ([]int64, error) {
	if m.catalogErr != nil {
		return nil, m.catalogErr
	}
	ids := make([]int64, 0, len(m.games))
	for id := range m.games {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memProviders) NameIndex(ctx context.Context) (map[int64]string, error) {
	if m.catalogErr != nil {
		return nil, m.catalogErr
	}
	names := make(map[int64]string, len(m.games))
	for id, g := range m.games {
		names[id] = g.Name
	}
	return names, nil
}

// Facet entity IDs used by the fixture, named for readability.
const (
	mechNetworkBuilding int64 = 1
	mechEconomic        int64 = 2
	mechMarket          int64 = 3
	mechHandManagement  int64 = 4
	mechAreaControl     int64 = 5
	mechTileLaying      int64 = 6

	catIndustry int64 = 10
	catTrains   int64 = 11
	catWestern  int64 = 12
	catSciFi    int64 = 14
	catAbstract int64 = 15
	catFood     int64 = 16
)

// newFixture builds a small catalog centered on Brass: Birmingham with
// embeddings that roughly track thematic/mechanical proximity.
func newFixture() *memProviders {
	return &memProviders{
		games: map[int64]*types.Game{
			1: {
				ID: 1, Name: "Brass: Birmingham",
				MinPlayers: 2, MaxPlayers: 4, PlaytimeMinutes: 120, Rating: 8.6, Weight: 3.9,
				Facets: map[types.Facet]types.FacetSet{
					types.FacetMechanics:  types.NewFacetSet(mechNetworkBuilding, mechEconomic, mechMarket),
					types.FacetCategories: types.NewFacetSet(catIndustry, catTrains),
				},
			},
			2: {
				ID: 2, Name: "Brass: Lancashire",
				MinPlayers: 2, MaxPlayers: 4, PlaytimeMinutes: 120, Rating: 8.2, Weight: 3.8,
				Facets: map[types.Facet]types.FacetSet{
					types.FacetMechanics:  types.NewFacetSet(mechNetworkBuilding, mechEconomic, mechMarket),
					types.FacetCategories: types.NewFacetSet(catIndustry, catTrains),
				},
			},
			3: {
				ID: 3, Name: "Great Western Trail",
				MinPlayers: 2, MaxPlayers: 4, PlaytimeMinutes: 150, Rating: 8.2, Weight: 3.7,
				Facets: map[types.Facet]types.FacetSet{
					types.FacetMechanics:  types.NewFacetSet(mechNetworkBuilding, mechHandManagement),
					types.FacetCategories: types.NewFacetSet(catWestern),
				},
			},
			4: {
				ID: 4, Name: "Scythe",
				MinPlayers: 1, MaxPlayers: 5, PlaytimeMinutes: 115, Rating: 8.2, Weight: 3.4,
				Facets: map[types.Facet]types.FacetSet{
					types.FacetMechanics:  types.NewFacetSet(mechEconomic, mechAreaControl),
					types.FacetCategories: types.NewFacetSet(catSciFi),
				},
			},
			5: {
				ID: 5, Name: "Azul",
				MinPlayers: 2, MaxPlayers: 4, PlaytimeMinutes: 45, Rating: 7.8, Weight: 1.8,
				Facets: map[types.Facet]types.FacetSet{
					types.FacetMechanics:  types.NewFacetSet(mechTileLaying),
					types.FacetCategories: types.NewFacetSet(catAbstract),
				},
			},
			6: {
				ID: 6, Name: "Food Chain Magnate",
				MinPlayers: 2, MaxPlayers: 5, PlaytimeMinutes: 180, Rating: 8.0, Weight: 4.2,
				Facets: map[types.Facet]types.FacetSet{
					types.FacetMechanics:  types.NewFacetSet(mechEconomic, mechMarket),
					types.FacetCategories: types.NewFacetSet(catFood),
				},
			},
		},
		vectors: map[int64][]float32{
			1: {1, 0, 0},
			2: {0.98, 0.15, 0},
			3: {0.8, 0.5, 0.1},
			4: {0.6, 0.6, 0.3},
			5: {0, 1, 0.2},
			6: {0.9, 0.2, 0.1},
		},
		collections: map[string][]int64{
			"alice": {2, 4, 5},
			"bob":   {},
		},
	}
}

func newTestRecommender(m *memProviders) *Recommender {
	r, err := NewRecommender(m.providers(), DefaultRuleTable(), DefaultConfig())
	if err != nil {
		panic(err)
	}
	return r
}
