package models

// Provenance records whether an annotation was authored or accepted by a
// human, or proposed by the inference service.
type Provenance string

const (
	ProvenanceConfirmed  Provenance = "confirmed"
	ProvenanceSuggestion Provenance = "suggestion"
)

// CandidateKind identifies the kind of a suggestion-provenance item.
type CandidateKind string

const (
	KindMention  CandidateKind = "mention"
	KindEntity   CandidateKind = "entity"
	KindRelation CandidateKind = "relation"
)

// Mention is a tagged set of tokens within one editing session. TokenIDs are
// kept in document order. EntityID is zero when the mention is not part of an
// entity. A resolved suggestion is retained as an audit trail but is
// invisible to read queries.
type Mention struct {
	ID         int64      `json:"id"`
	TypeTag    string     `json:"type_tag"`
	TokenIDs   []int64    `json:"token_ids"`
	EntityID   int64      `json:"entity_id,omitempty"`
	Provenance Provenance `json:"provenance"`
	Resolved   bool       `json:"resolved,omitempty"`
}

// Entity is a cluster of same-type mentions.
type Entity struct {
	ID         int64      `json:"id"`
	TypeTag    string     `json:"type_tag"`
	MentionIDs []int64    `json:"mention_ids"`
	Provenance Provenance `json:"provenance"`
	Resolved   bool       `json:"resolved,omitempty"`
}

// Relation is a typed, optionally directed edge between two mentions. The
// Directed flag is the schema constraint's, not the caller's.
type Relation struct {
	ID         int64      `json:"id"`
	Tag        string     `json:"tag"`
	HeadID     int64      `json:"head_id"`
	TailID     int64      `json:"tail_id"`
	Directed   bool       `json:"directed"`
	Provenance Provenance `json:"provenance"`
	Resolved   bool       `json:"resolved,omitempty"`
}

// AnnotationRows is the flat, persistable form of one edit's annotation
// state. The graph engine exports and reloads it; the store persists it.
type AnnotationRows struct {
	Mentions  []Mention
	Entities  []Entity
	Relations []Relation
}
