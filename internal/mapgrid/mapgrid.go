// Package mapgrid implements the 2-D tile grid: tile claiming with
// intensity accumulation, neighborhood queries, farm- and attack-target
// selection, building-death detection, and periodic deprecation of
// overgrown tiles.
package mapgrid

import (
	"github.com/ploupy/simcore/internal/delay"
	"github.com/ploupy/simcore/internal/enginelog"
	"github.com/ploupy/simcore/internal/geometry"
	"github.com/ploupy/simcore/internal/identity"
	"github.com/ploupy/simcore/internal/state"
	"github.com/ploupy/simcore/internal/xrand"
)

const deprecateGateSeconds = 1.0
const maxVortexSteps = 1000

// Tile is one persistent map cell.
type Tile struct {
	id            identity.ID
	coord         geometry.Coord
	maxOccupation int
	occupation    int
	ownerID       identity.ID
	buildingID    identity.ID
}

// Coord returns the tile's grid position.
func (t *Tile) Coord() geometry.Coord { return t.coord }

// Occupation returns the current occupation level.
func (t *Tile) Occupation() int { return t.occupation }

// OwnerID returns the owning player, or identity.NoneID if unowned.
func (t *Tile) OwnerID() identity.ID { return t.ownerID }

// BuildingID returns the resident building, or identity.NoneID if none.
func (t *Tile) BuildingID() identity.ID { return t.buildingID }

// ID returns the tile's own identifier.
func (t *Tile) ID() identity.ID { return t.id }

// IsOwnedBy reports whether playerID owns this tile.
func (t *Tile) IsOwnedBy(playerID identity.ID) bool {
	return t.ownerID.Valid() && t.ownerID == playerID
}

// IsOwnedByOpponentOf reports whether the tile is owned by someone other
// than playerID.
func (t *Tile) IsOwnedByOpponentOf(playerID identity.ID) bool {
	return t.ownerID.Valid() && t.ownerID != playerID
}

// PlaceBuilding attaches a building to the tile. The caller (Player action)
// is responsible for the invariant that owner_id == building.owner and
// occupation >= building_occupation_min at the moment of placement. Use
// Map.PlaceBuilding to also emit the resulting tile diff.
func (t *Tile) PlaceBuilding(buildingID identity.ID) {
	t.buildingID = buildingID
}

// TileState is the sparse diff record for a tile. A nil field means
// unchanged. For Owner/Building, a non-nil pointer to identity.NoneID
// means "cleared"; a non-nil pointer to a real id means "set".
type TileState struct {
	ID         identity.ID
	Occupation *int
	OwnerID    *identity.ID
	BuildingID *identity.ID
}

// GetID implements state.Identifiable.
func (s TileState) GetID() identity.ID { return s.ID }

func mergeTileState(dst *TileState, src TileState) {
	if src.Occupation != nil {
		dst.Occupation = src.Occupation
	}
	if src.OwnerID != nil {
		dst.OwnerID = src.OwnerID
	}
	if src.BuildingID != nil {
		dst.BuildingID = src.BuildingID
	}
}

// MergeTileState folds src into dst, for Game's insert-or-merge of map
// tile diffs into its own root diff.
func MergeTileState(dst *TileState, src TileState) {
	mergeTileState(dst, src)
}

// MapState is the map's sparse diff: the tiles that changed this frame.
type MapState struct {
	Tiles []TileState
}

func blankMapState() MapState { return MapState{} }

func mergeMapState(dst *MapState, src MapState) {
	for _, t := range src.Tiles {
		dst.Tiles = state.InsertOrMerge(dst.Tiles, t, mergeTileState)
	}
}

// DeadBuilding reports a building that died because its tile's occupation
// fell to zero.
type DeadBuilding struct {
	OwnerID    identity.ID
	BuildingID identity.ID
}

// Map is the 2-D tile grid.
type Map struct {
	dim           geometry.Coord
	maxOccupation int
	deprecateRate float64

	tiles []Tile // row-major: index = y*dim.X + x

	handle        *state.Handle[MapState]
	deprecateGate *delay.Gate
	deadBuildings []DeadBuilding
}

// New builds a dim.X x dim.Y grid of empty tiles.
func New(dim geometry.Coord, maxOccupation int, deprecateRate float64) *Map {
	m := &Map{
		dim:           dim,
		maxOccupation: maxOccupation,
		deprecateRate: deprecateRate,
		tiles:         make([]Tile, dim.X*dim.Y),
		handle:        state.NewHandle(blankMapState, mergeMapState),
		deprecateGate: delay.New(deprecateGateSeconds),
	}
	for y := 0; y < dim.Y; y++ {
		for x := 0; x < dim.X; x++ {
			c := geometry.Coord{X: x, Y: y}
			m.tiles[m.index(c)] = Tile{
				id:            identity.New(),
				coord:         c,
				maxOccupation: maxOccupation,
				occupation:    0,
				ownerID:       identity.NoneID,
				buildingID:    identity.NoneID,
			}
		}
	}
	return m
}

// Dim returns the grid dimensions.
func (m *Map) Dim() geometry.Coord { return m.dim }

// MaxOccupation returns the configured occupation cap.
func (m *Map) MaxOccupation() int { return m.maxOccupation }

func (m *Map) index(c geometry.Coord) int { return c.Y*m.dim.X + c.X }

func (m *Map) inBounds(c geometry.Coord) bool {
	return c.IsPositive() && c.X < m.dim.X && c.Y < m.dim.Y
}

// Get returns the tile at coord, or nil if out of range.
func (m *Map) Get(coord geometry.Coord) *Tile {
	if !m.inBounds(coord) {
		return nil
	}
	return &m.tiles[m.index(coord)]
}

// AllTiles returns every tile, for building a complete snapshot.
func (m *Map) AllTiles() []*Tile {
	out := make([]*Tile, len(m.tiles))
	for i := range m.tiles {
		out[i] = &m.tiles[i]
	}
	return out
}

func (m *Map) emitTileDiff(t *Tile) {
	occ := t.occupation
	owner := t.ownerID
	building := t.buildingID
	diff := TileState{ID: t.id, Occupation: &occ, OwnerID: &owner, BuildingID: &building}
	m.handle.Merge(MapState{Tiles: []TileState{diff}})
}

// clearAbandonedTile clears ownership and building residency once a
// tile's occupation has fallen to zero, recording the former building (if
// any) as dead. No-op if occupation is still positive.
func (m *Map) clearAbandonedTile(t *Tile) {
	if t.occupation != 0 {
		return
	}
	if t.buildingID.Valid() {
		m.deadBuildings = append(m.deadBuildings, DeadBuilding{OwnerID: t.ownerID, BuildingID: t.buildingID})
	}
	t.ownerID = identity.NoneID
	t.buildingID = identity.NoneID
}

// PlaceBuilding attaches buildingID to the tile at coord and emits the
// resulting tile diff (building_id included), for build_factory/build_turret
// actions. Returns false if coord is out of range.
func (m *Map) PlaceBuilding(coord geometry.Coord, buildingID identity.ID) bool {
	t := m.Get(coord)
	if t == nil {
		return false
	}
	t.PlaceBuilding(buildingID)
	m.emitTileDiff(t)
	return true
}

// Claim is the central map mutation. It returns false (and emits no diff)
// if coord is out of range.
func (m *Map) Claim(playerID identity.ID, coord geometry.Coord, intensity int) bool {
	t := m.Get(coord)
	if t == nil {
		return false
	}

	switch {
	case !t.ownerID.Valid():
		t.ownerID = playerID
		t.occupation = clamp(t.occupation+intensity, 0, m.maxOccupation)
	case t.ownerID == playerID:
		t.occupation = clamp(t.occupation+intensity, 0, m.maxOccupation)
	default:
		t.occupation -= intensity
		if t.occupation < 0 {
			t.occupation = 0
		}
		m.clearAbandonedTile(t)
	}

	m.emitTileDiff(t)
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (m *Map) isValidFarmTarget(t *Tile, playerID identity.ID) bool {
	if t.occupation >= m.maxOccupation {
		return false
	}
	if t.IsOwnedBy(playerID) {
		return true
	}
	if t.occupation <= 3 {
		for _, nc := range geometry.SquareWithoutOrigin(t.coord, 1) {
			if n := m.Get(nc); n != nil && n.IsOwnedBy(playerID) {
				return true
			}
		}
	}
	return false
}

func (m *Map) closeFarmTarget(playerID identity.ID, origin geometry.Coord, rng xrand.Source) (geometry.Coord, bool) {
	coords := geometry.SquareWithoutOrigin(origin, 3)
	xrand.ShuffleCoords(rng, coords)
	for _, c := range coords {
		t := m.Get(c)
		if t == nil {
			continue
		}
		if m.isValidFarmTarget(t, playerID) {
			return t.coord, true
		}
	}
	return geometry.Coord{}, false
}

// GetProbeFarmTarget selects a target for a farming probe: first around the
// probe itself, then around each of the player's factories in order.
func (m *Map) GetProbeFarmTarget(playerID identity.ID, probeCoord geometry.Coord, factoryPositions []geometry.Coord, rng xrand.Source) (geometry.Coord, bool) {
	if c, ok := m.closeFarmTarget(playerID, probeCoord, rng); ok {
		return c, true
	}
	for _, fpos := range factoryPositions {
		if c, ok := m.closeFarmTarget(playerID, fpos, rng); ok {
			return c, true
		}
	}
	return geometry.Coord{}, false
}

// GetProbeAttackTarget selects a target for an attacking probe: walk the
// vortex from probeCoord to find a seed tile owned by an opponent, then
// pick a random still-opponent-owned tile in its 2-neighborhood.
func (m *Map) GetProbeAttackTarget(playerID identity.ID, probeCoord geometry.Coord, rng xrand.Source) (geometry.Coord, bool) {
	v := geometry.NewVortex(probeCoord)
	var seed *Tile
	for i := 0; i < maxVortexSteps; i++ {
		c := v.Next()
		if t := m.Get(c); t != nil && t.IsOwnedByOpponentOf(playerID) {
			seed = t
			break
		}
	}
	if seed == nil {
		enginelog.Logger.Warn().Msg("attack target search exhausted vortex steps")
		return geometry.Coord{}, false
	}

	region := append(geometry.SquareWithoutOrigin(seed.coord, 2), seed.coord)
	xrand.ShuffleCoords(rng, region)
	for _, c := range region {
		if t := m.Get(c); t != nil && t.IsOwnedByOpponentOf(playerID) {
			return t.coord, true
		}
	}
	return geometry.Coord{}, false
}

// GetPlayerOccupation sums the occupation of every tile owned by playerID.
func (m *Map) GetPlayerOccupation(playerID identity.ID) int {
	total := 0
	for i := range m.tiles {
		if m.tiles[i].IsOwnedBy(playerID) {
			total += m.tiles[i].occupation
		}
	}
	return total
}

func (m *Map) deprecate(rng xrand.Source) {
	half := float64(m.maxOccupation) / 2
	span := float64(m.maxOccupation) - half
	for i := range m.tiles {
		t := &m.tiles[i]
		if float64(t.occupation) <= half {
			continue
		}
		p := (float64(t.occupation) - half) / span * m.deprecateRate
		if rng.Float64() <= p {
			t.occupation -= 2
			if t.occupation < 0 {
				t.occupation = 0
			}
			m.clearAbandonedTile(t)
			m.emitTileDiff(t)
		}
	}
}

// Tick advances the deprecation delay gate, running deprecation if it
// fires. Deprecation never runs before the gate's first fire (no
// deprecation on the very first tick).
func (m *Map) Tick(dt float64, rng xrand.Source) {
	if m.deprecateGate.Advance(dt) {
		m.deprecate(rng)
	}
}

// DrainDeadBuildings returns and clears the buildings reported dead by
// Claim since the last drain.
func (m *Map) DrainDeadBuildings() []DeadBuilding {
	out := m.deadBuildings
	m.deadBuildings = nil
	return out
}

// Flush returns the map's accumulated diff, if any changed this frame.
func (m *Map) Flush() (MapState, bool) {
	return m.handle.Flush()
}

// CompleteState returns a dense snapshot of every tile.
func (m *Map) CompleteState() MapState {
	tiles := make([]TileState, 0, len(m.tiles))
	for i := range m.tiles {
		t := &m.tiles[i]
		occ := t.occupation
		owner := t.ownerID
		building := t.buildingID
		tiles = append(tiles, TileState{ID: t.id, Occupation: &occ, OwnerID: &owner, BuildingID: &building})
	}
	return MapState{Tiles: tiles}
}
