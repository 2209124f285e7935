package objects

// Entry is a typed, content-addressed object record produced by the
// pack decoder and consumed by the storage facade (spec §6, GLOSSARY).
// ParsedCommit / ParsedTree / ParsedBlob / ParsedTag hold the decoded
// form, so callers that only need the header (e.g. counting commits
// during unpack) need not decode anything themselves. Payload is not
// filled in by the pack decoder or by full_pack: the codec and the
// stores read and write objects through the Parsed* fields only.
type Entry struct {
	Type    ObjectType
	ID      ID
	Payload []byte

	ParsedCommit *Commit
	ParsedTree   *Tree
	ParsedBlob   *RawBlob
	ParsedTag    *Tag
}
