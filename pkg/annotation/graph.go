// Package annotation implements the per-edit annotation graph: mentions,
// entities, relations, and the token index used for overlap checks. The
// graph is an in-memory, id-indexed store; it is scoped to a single document
// edit and must not be shared across edits.
package annotation

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/glosahq/glosa/pkg/models"
	"github.com/glosahq/glosa/pkg/schema"
)

// Graph owns the annotation state for one editing session. Every write
// re-establishes the structural invariants: confirmed mentions never share a
// token, entity members share one mention type, and every relation matches a
// schema constraint. Resolved suggestions stay in the arena as an audit
// trail but are invisible to read queries.
type Graph struct {
	schema *schema.Index

	tokens     map[int64]models.Token
	tokenOrder []models.Token

	nextID    int64
	mentions  map[int64]*models.Mention
	entities  map[int64]*models.Entity
	relations map[int64]*models.Relation

	// tokenID -> id of the confirmed mention claiming it
	tokenClaims map[int64]int64
	// mention id -> relation ids where the mention is head / tail
	relationsByHead map[int64][]int64
	relationsByTail map[int64][]int64
}

// NewGraph creates an empty graph over the document's tokens. Tokens must be
// in strictly increasing DocumentIndex order, as returned by TokenProvider.
func NewGraph(idx *schema.Index, tokens []models.Token) *Graph {
	g := &Graph{
		schema:          idx,
		tokens:          make(map[int64]models.Token, len(tokens)),
		tokenOrder:      make([]models.Token, len(tokens)),
		nextID:          1,
		mentions:        make(map[int64]*models.Mention),
		entities:        make(map[int64]*models.Entity),
		relations:       make(map[int64]*models.Relation),
		tokenClaims:     make(map[int64]int64),
		relationsByHead: make(map[int64][]int64),
		relationsByTail: make(map[int64][]int64),
	}
	copy(g.tokenOrder, tokens)
	for _, t := range tokens {
		g.tokens[t.ID] = t
	}
	return g
}

// FromRows rebuilds a graph from its persisted row form. Rows are assumed to
// have been exported from a valid graph; indexes are rebuilt, invariants are
// not re-checked.
func FromRows(idx *schema.Index, tokens []models.Token, rows *models.AnnotationRows) *Graph {
	g := NewGraph(idx, tokens)
	for i := range rows.Mentions {
		m := cloneMention(&rows.Mentions[i])
		g.mentions[m.ID] = m
		if m.Provenance == models.ProvenanceConfirmed {
			for _, tid := range m.TokenIDs {
				g.tokenClaims[tid] = m.ID
			}
		}
		g.bumpNextID(m.ID)
	}
	for i := range rows.Entities {
		e := cloneEntity(&rows.Entities[i])
		g.entities[e.ID] = e
		g.bumpNextID(e.ID)
	}
	for i := range rows.Relations {
		r := cloneRelation(&rows.Relations[i])
		g.relations[r.ID] = r
		g.relationsByHead[r.HeadID] = append(g.relationsByHead[r.HeadID], r.ID)
		g.relationsByTail[r.TailID] = append(g.relationsByTail[r.TailID], r.ID)
		g.bumpNextID(r.ID)
	}
	return g
}

func (g *Graph) bumpNextID(id int64) {
	if id >= g.nextID {
		g.nextID = id + 1
	}
}

func (g *Graph) allocID() int64 {
	id := g.nextID
	g.nextID++
	return id
}

// ExportRows returns the flat row form of the graph, including resolved
// suggestions, sorted by id.
func (g *Graph) ExportRows() *models.AnnotationRows {
	rows := &models.AnnotationRows{}
	for _, m := range g.mentions {
		rows.Mentions = append(rows.Mentions, *cloneMention(m))
	}
	for _, e := range g.entities {
		rows.Entities = append(rows.Entities, *cloneEntity(e))
	}
	for _, r := range g.relations {
		rows.Relations = append(rows.Relations, *cloneRelation(r))
	}
	sort.Slice(rows.Mentions, func(i, j int) bool { return rows.Mentions[i].ID < rows.Mentions[j].ID })
	sort.Slice(rows.Entities, func(i, j int) bool { return rows.Entities[i].ID < rows.Entities[j].ID })
	sort.Slice(rows.Relations, func(i, j int) bool { return rows.Relations[i].ID < rows.Relations[j].ID })
	return rows
}

// Tokens returns the document's tokens in document order.
func (g *Graph) Tokens() []models.Token {
	tokens := make([]models.Token, len(g.tokenOrder))
	copy(tokens, g.tokenOrder)
	return tokens
}

// TokenIDsInRange returns the ids of tokens whose DocumentIndex lies in the
// inclusive range [start, end].
func (g *Graph) TokenIDsInRange(start, end int) []int64 {
	var ids []int64
	for _, t := range g.tokenOrder {
		if t.DocumentIndex > end {
			break
		}
		if t.DocumentIndex >= start {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// CreateMention validates and stores a new mention. Confirmed mentions claim
// their tokens; a token already claimed by another confirmed mention is a
// conflict. Suggestion mentions may overlap freely.
func (g *Graph) CreateMention(
	typeTag string,
	tokenIDs []int64,
	provenance models.Provenance,
) (*models.Mention, error) {
	if len(tokenIDs) == 0 {
		return nil, models.NewValidationError("mention requires at least one token")
	}
	if _, err := g.schema.ResolveMentionType(typeTag); err != nil {
		return nil, models.NewValidationError("unknown mention type " + typeTag)
	}
	seen := make(map[int64]struct{}, len(tokenIDs))
	for _, tid := range tokenIDs {
		if _, ok := g.tokens[tid]; !ok {
			return nil, models.NewValidationError(
				fmt.Sprintf("token %d does not belong to the document", tid),
			)
		}
		if _, dup := seen[tid]; dup {
			return nil, models.NewValidationError(
				fmt.Sprintf("duplicate token %d in mention", tid),
			)
		}
		seen[tid] = struct{}{}
	}
	if provenance == models.ProvenanceConfirmed {
		for _, tid := range tokenIDs {
			if owner, claimed := g.tokenClaims[tid]; claimed {
				return nil, models.NewConflictError(
					fmt.Sprintf("token %d already claimed by mention %d", tid, owner),
				)
			}
		}
	}

	m := &models.Mention{
		ID:         g.allocID(),
		TypeTag:    typeTag,
		TokenIDs:   sortedByDocumentIndex(g, tokenIDs),
		Provenance: provenance,
	}
	g.mentions[m.ID] = m
	if provenance == models.ProvenanceConfirmed {
		for _, tid := range m.TokenIDs {
			g.tokenClaims[tid] = m.ID
		}
	}
	return cloneMention(m), nil
}

// MentionUpdate carries the optional fields of an UpdateMention call. Nil
// means unchanged. An EntityID of zero detaches the mention from its entity.
type MentionUpdate struct {
	TypeTag  *string
	TokenIDs []int64
	EntityID *int64
}

// UpdateMention retags, retokenizes, or reassigns a confirmed mention.
// Suggestion mentions cannot be updated directly; they are only accepted or
// rejected.
func (g *Graph) UpdateMention(id int64, update MentionUpdate) (*models.Mention, error) {
	m, err := g.visibleMention(id)
	if err != nil {
		return nil, err
	}
	if m.Provenance == models.ProvenanceSuggestion {
		return nil, models.NewValidationError(
			fmt.Sprintf("candidate mention %d can only be accepted or rejected", id),
		)
	}

	newType := m.TypeTag
	if update.TypeTag != nil {
		newType = *update.TypeTag
		if _, err := g.schema.ResolveMentionType(newType); err != nil {
			return nil, models.NewValidationError("unknown mention type " + newType)
		}
		if newType != m.TypeTag {
			if err := g.checkRetagKeepsInvariants(m, newType); err != nil {
				return nil, err
			}
		}
	}

	newTokens := m.TokenIDs
	if update.TokenIDs != nil {
		newTokens = update.TokenIDs
		if len(newTokens) == 0 {
			return nil, models.NewValidationError("mention requires at least one token")
		}
		seen := make(map[int64]struct{}, len(newTokens))
		for _, tid := range newTokens {
			if _, ok := g.tokens[tid]; !ok {
				return nil, models.NewValidationError(
					fmt.Sprintf("token %d does not belong to the document", tid),
				)
			}
			if _, dup := seen[tid]; dup {
				return nil, models.NewValidationError(
					fmt.Sprintf("duplicate token %d in mention", tid),
				)
			}
			seen[tid] = struct{}{}
			// overlap check against all other confirmed mentions, self excluded
			if owner, claimed := g.tokenClaims[tid]; claimed && owner != m.ID {
				return nil, models.NewConflictError(
					fmt.Sprintf("token %d already claimed by mention %d", tid, owner),
				)
			}
		}
	}

	if update.EntityID != nil && *update.EntityID != 0 {
		target, ok := g.entities[*update.EntityID]
		if !ok || target.Resolved {
			return nil, models.NewValidationError(
				fmt.Sprintf("entity %d not found", *update.EntityID),
			)
		}
		mt, err := g.schema.ResolveMentionType(newType)
		if err != nil {
			return nil, models.NewValidationError("unknown mention type " + newType)
		}
		if !mt.AnchorsEntity {
			return nil, models.NewValidationError(
				fmt.Sprintf("mention type %s does not allow entity membership", newType),
			)
		}
		if target.TypeTag != newType {
			return nil, models.NewValidationError(
				fmt.Sprintf(
					"entity %d contains mentions of type %s, not %s",
					target.ID, target.TypeTag, newType,
				),
			)
		}
	}

	// all checks passed, apply
	if update.TokenIDs != nil {
		for _, tid := range m.TokenIDs {
			delete(g.tokenClaims, tid)
		}
		m.TokenIDs = sortedByDocumentIndex(g, newTokens)
		for _, tid := range m.TokenIDs {
			g.tokenClaims[tid] = m.ID
		}
	}
	m.TypeTag = newType
	if m.EntityID != 0 {
		// a sole-member entity follows its mention's type
		if e := g.entities[m.EntityID]; e != nil && len(e.MentionIDs) == 1 {
			e.TypeTag = newType
		}
	}
	if update.EntityID != nil {
		previous := m.EntityID
		switch target := *update.EntityID; target {
		case 0:
			m.EntityID = 0
		default:
			if previous != target {
				e := g.entities[target]
				e.MentionIDs = append(e.MentionIDs, m.ID)
				m.EntityID = target
			}
		}
		if previous != 0 && previous != m.EntityID {
			g.detachFromEntity(previous, m.ID)
		}
	}
	return cloneMention(m), nil
}

// checkRetagKeepsInvariants verifies that retagging the mention does not
// break entity homogeneity or invalidate a relation it participates in.
func (g *Graph) checkRetagKeepsInvariants(m *models.Mention, newType string) error {
	if m.EntityID != 0 {
		e := g.entities[m.EntityID]
		if e != nil && len(e.MentionIDs) > 1 {
			return models.NewValidationError(
				fmt.Sprintf(
					"cannot retag mention %d: entity %d members must share type %s",
					m.ID, e.ID, e.TypeTag,
				),
			)
		}
		mt, err := g.schema.ResolveMentionType(newType)
		if err != nil || !mt.AnchorsEntity {
			return models.NewValidationError(
				fmt.Sprintf(
					"cannot retag mention %d: type %s does not allow entity membership",
					m.ID, newType,
				),
			)
		}
	}
	for _, rid := range g.relationsByHead[m.ID] {
		r := g.relations[rid]
		tail := g.mentions[r.TailID]
		if _, err := g.schema.ResolveRelationConstraint(r.Tag, newType, tail.TypeTag, r.Directed); err != nil {
			return models.NewValidationError(
				fmt.Sprintf("cannot retag mention %d: relation %d would violate the schema", m.ID, rid),
			)
		}
	}
	for _, rid := range g.relationsByTail[m.ID] {
		r := g.relations[rid]
		head := g.mentions[r.HeadID]
		if _, err := g.schema.ResolveRelationConstraint(r.Tag, head.TypeTag, newType, r.Directed); err != nil {
			return models.NewValidationError(
				fmt.Sprintf("cannot retag mention %d: relation %d would violate the schema", m.ID, rid),
			)
		}
	}
	return nil
}

// DeleteMention removes a confirmed mention and cascades: relations with the
// mention as either endpoint are deleted, the mention is detached from its
// entity, and an entity left empty is deleted. Suggestion mentions cannot be
// deleted directly; they are only accepted or rejected.
func (g *Graph) DeleteMention(id int64) error {
	m, err := g.visibleMention(id)
	if err != nil {
		return err
	}
	if m.Provenance == models.ProvenanceSuggestion {
		return models.NewValidationError(
			fmt.Sprintf("candidate mention %d can only be accepted or rejected", id),
		)
	}
	for _, rid := range append(
		append([]int64{}, g.relationsByHead[id]...),
		g.relationsByTail[id]...,
	) {
		g.removeRelation(rid)
	}
	if m.EntityID != 0 {
		g.detachFromEntity(m.EntityID, id)
	}
	if m.Provenance == models.ProvenanceConfirmed {
		for _, tid := range m.TokenIDs {
			delete(g.tokenClaims, tid)
		}
	}
	delete(g.mentions, id)
	return nil
}

// CreateEntity clusters existing mentions into an entity. All members must
// carry an identical mention type whose schema entry allows entity
// membership. Confirmed entities take ownership of their members; suggestion
// entities reference members without mutating them until accepted.
func (g *Graph) CreateEntity(
	mentionIDs []int64,
	provenance models.Provenance,
) (*models.Entity, error) {
	if len(mentionIDs) == 0 {
		return nil, models.NewValidationError("entity requires at least one mention")
	}
	var typeTag string
	seen := make(map[int64]struct{}, len(mentionIDs))
	for i, mid := range mentionIDs {
		if _, dup := seen[mid]; dup {
			return nil, models.NewValidationError(
				fmt.Sprintf("duplicate mention %d in entity", mid),
			)
		}
		seen[mid] = struct{}{}
		m, err := g.visibleMention(mid)
		if err != nil {
			return nil, models.NewValidationError(fmt.Sprintf("mention %d not found", mid))
		}
		if i == 0 {
			typeTag = m.TypeTag
		} else if m.TypeTag != typeTag {
			return nil, models.NewValidationError(
				fmt.Sprintf(
					"entity members must share one type: mention %d is %s, expected %s",
					mid, m.TypeTag, typeTag,
				),
			)
		}
		if provenance == models.ProvenanceConfirmed && m.EntityID != 0 {
			return nil, models.NewValidationError(
				fmt.Sprintf("mention %d already belongs to entity %d", mid, m.EntityID),
			)
		}
	}
	mt, err := g.schema.ResolveMentionType(typeTag)
	if err != nil {
		return nil, models.NewValidationError("unknown mention type " + typeTag)
	}
	if !mt.AnchorsEntity {
		return nil, models.NewValidationError(
			fmt.Sprintf("mention type %s does not allow entity membership", typeTag),
		)
	}

	e := &models.Entity{
		ID:         g.allocID(),
		TypeTag:    typeTag,
		MentionIDs: append([]int64{}, mentionIDs...),
		Provenance: provenance,
	}
	g.entities[e.ID] = e
	if provenance == models.ProvenanceConfirmed {
		for _, mid := range mentionIDs {
			g.mentions[mid].EntityID = e.ID
		}
	}
	return cloneEntity(e), nil
}

// DeleteEntity detaches all members and removes a confirmed entity. The
// member mentions themselves are untouched. Suggestion entities cannot be
// deleted directly; they are only accepted or rejected.
func (g *Graph) DeleteEntity(id int64) error {
	e, ok := g.entities[id]
	if !ok || e.Resolved {
		return models.NewNotFoundError(fmt.Sprintf("entity %d", id))
	}
	if e.Provenance == models.ProvenanceSuggestion {
		return models.NewValidationError(
			fmt.Sprintf("candidate entity %d can only be accepted or rejected", id),
		)
	}
	for _, mid := range e.MentionIDs {
		if m, ok := g.mentions[mid]; ok && m.EntityID == id {
			m.EntityID = 0
		}
	}
	delete(g.entities, id)
	return nil
}

// CreateRelation validates a relation against the schema and stores it with
// the matched constraint's directedness, which is authoritative over the
// caller's requested flag.
func (g *Graph) CreateRelation(
	relationTag string,
	headID, tailID int64,
	requestedDirected bool,
	provenance models.Provenance,
) (*models.Relation, error) {
	head, err := g.visibleMention(headID)
	if err != nil {
		return nil, models.NewValidationError(fmt.Sprintf("head mention %d not found", headID))
	}
	tail, err := g.visibleMention(tailID)
	if err != nil {
		return nil, models.NewValidationError(fmt.Sprintf("tail mention %d not found", tailID))
	}
	constraint, err := g.schema.ResolveRelationConstraint(
		relationTag, head.TypeTag, tail.TypeTag, requestedDirected,
	)
	if err != nil {
		return nil, models.NewValidationError(
			fmt.Sprintf(
				"no schema constraint allows %s between %s and %s",
				relationTag, head.TypeTag, tail.TypeTag,
			),
		)
	}

	r := &models.Relation{
		ID:         g.allocID(),
		Tag:        relationTag,
		HeadID:     headID,
		TailID:     tailID,
		Directed:   constraint.Directed,
		Provenance: provenance,
	}
	g.relations[r.ID] = r
	g.relationsByHead[headID] = append(g.relationsByHead[headID], r.ID)
	g.relationsByTail[tailID] = append(g.relationsByTail[tailID], r.ID)
	return cloneRelation(r), nil
}

// DeleteRelation removes a confirmed relation. Relations are leaves in the
// graph, so there is no cascade. Suggestion relations cannot be deleted
// directly; they are only accepted or rejected.
func (g *Graph) DeleteRelation(id int64) error {
	r, ok := g.relations[id]
	if !ok || r.Resolved {
		return models.NewNotFoundError(fmt.Sprintf("relation %d", id))
	}
	if r.Provenance == models.ProvenanceSuggestion {
		return models.NewValidationError(
			fmt.Sprintf("candidate relation %d can only be accepted or rejected", id),
		)
	}
	g.removeRelation(id)
	return nil
}

// Mention returns a visible mention by id.
func (g *Graph) Mention(id int64) (*models.Mention, error) {
	m, err := g.visibleMention(id)
	if err != nil {
		return nil, err
	}
	return cloneMention(m), nil
}

// Entity returns a visible entity by id.
func (g *Graph) Entity(id int64) (*models.Entity, error) {
	e, ok := g.entities[id]
	if !ok || e.Resolved {
		return nil, models.NewNotFoundError(fmt.Sprintf("entity %d", id))
	}
	return cloneEntity(e), nil
}

// Relation returns a visible relation by id.
func (g *Graph) Relation(id int64) (*models.Relation, error) {
	r, ok := g.relations[id]
	if !ok || r.Resolved {
		return nil, models.NewNotFoundError(fmt.Sprintf("relation %d", id))
	}
	return cloneRelation(r), nil
}

// Mentions lists visible mentions of the given provenance in id order. An
// empty provenance lists all visible mentions.
func (g *Graph) Mentions(provenance models.Provenance) []models.Mention {
	var out []models.Mention
	for _, m := range g.mentions {
		if m.Resolved {
			continue
		}
		if provenance != "" && m.Provenance != provenance {
			continue
		}
		out = append(out, *cloneMention(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Entities lists visible entities of the given provenance in id order.
func (g *Graph) Entities(provenance models.Provenance) []models.Entity {
	var out []models.Entity
	for _, e := range g.entities {
		if e.Resolved {
			continue
		}
		if provenance != "" && e.Provenance != provenance {
			continue
		}
		out = append(out, *cloneEntity(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Relations lists visible relations of the given provenance in id order.
func (g *Graph) Relations(provenance models.Provenance) []models.Relation {
	var out []models.Relation
	for _, r := range g.relations {
		if r.Resolved {
			continue
		}
		if provenance != "" && r.Provenance != provenance {
			continue
		}
		out = append(out, *cloneRelation(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Snapshot exports the confirmed annotation state in the shape the
// downstream scoring service expects.
func (g *Graph) Snapshot(documentUUID uuid.UUID) *models.AnnotationSnapshot {
	snapshot := &models.AnnotationSnapshot{
		Document: models.SnapshotDocument{
			ID:     documentUUID.String(),
			Tokens: g.Tokens(),
		},
		Mentions:  []models.SnapshotMention{},
		Relations: []models.SnapshotRelation{},
	}
	for _, m := range g.Mentions(models.ProvenanceConfirmed) {
		sm := models.SnapshotMention{
			Tag:    m.TypeTag,
			Tokens: m.TokenIDs,
		}
		if m.EntityID != 0 {
			sm.Entity = &models.SnapshotEntity{ID: m.EntityID}
		}
		snapshot.Mentions = append(snapshot.Mentions, sm)
	}
	for _, r := range g.Relations(models.ProvenanceConfirmed) {
		snapshot.Relations = append(snapshot.Relations, models.SnapshotRelation{
			Tag:         r.Tag,
			HeadMention: r.HeadID,
			TailMention: r.TailID,
		})
	}
	return snapshot
}

func (g *Graph) visibleMention(id int64) (*models.Mention, error) {
	m, ok := g.mentions[id]
	if !ok || m.Resolved {
		return nil, models.NewNotFoundError(fmt.Sprintf("mention %d", id))
	}
	return m, nil
}

// detachFromEntity removes a member from an entity, deleting the entity if
// it becomes empty. Empty-entity cleanup is expected control flow, not an
// error.
func (g *Graph) detachFromEntity(entityID, mentionID int64) {
	e, ok := g.entities[entityID]
	if !ok {
		return
	}
	members := e.MentionIDs[:0]
	for _, mid := range e.MentionIDs {
		if mid != mentionID {
			members = append(members, mid)
		}
	}
	e.MentionIDs = members
	if len(e.MentionIDs) == 0 {
		delete(g.entities, entityID)
	}
}

func (g *Graph) removeRelation(id int64) {
	r, ok := g.relations[id]
	if !ok {
		return
	}
	g.relationsByHead[r.HeadID] = removeID(g.relationsByHead[r.HeadID], id)
	g.relationsByTail[r.TailID] = removeID(g.relationsByTail[r.TailID], id)
	delete(g.relations, id)
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func sortedByDocumentIndex(g *Graph, tokenIDs []int64) []int64 {
	out := append([]int64{}, tokenIDs...)
	sort.Slice(out, func(i, j int) bool {
		return g.tokens[out[i]].DocumentIndex < g.tokens[out[j]].DocumentIndex
	})
	return out
}

func cloneMention(m *models.Mention) *models.Mention {
	c := *m
	c.TokenIDs = append([]int64{}, m.TokenIDs...)
	return &c
}

func cloneEntity(e *models.Entity) *models.Entity {
	c := *e
	c.MentionIDs = append([]int64{}, e.MentionIDs...)
	return &c
}

func cloneRelation(r *models.Relation) *models.Relation {
	c := *r
	return &c
}
