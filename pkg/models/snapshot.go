package models

// AnnotationSnapshot is the export shape consumed by the downstream scoring
// and diffing service. It carries confirmed annotations only. Field names and
// nesting cross a service boundary and must not change.
type AnnotationSnapshot struct {
	Document  SnapshotDocument   `json:"document"`
	Mentions  []SnapshotMention  `json:"mentions"`
	Relations []SnapshotRelation `json:"relations"`
}

type SnapshotDocument struct {
	ID     string  `json:"id"`
	Tokens []Token `json:"tokens"`
}

type SnapshotMention struct {
	Tag    string          `json:"tag"`
	Tokens []int64         `json:"tokens"`
	Entity *SnapshotEntity `json:"entity,omitempty"`
}

type SnapshotEntity struct {
	ID int64 `json:"id"`
}

type SnapshotRelation struct {
	Tag         string `json:"tag"`
	HeadMention int64  `json:"head_mention"`
	TailMention int64  `json:"tail_mention"`
}
