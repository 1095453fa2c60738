package docstore

// Key layout:
//
//	raw:<id>        raw record document
//	rawhash:<hash>  raw id owning a content hash
//	enr:<rawID>     enrichment outcome document
const (
	rawPrefix     = "raw:"
	rawHashPrefix = "rawhash:"
	outcomePrefix = "enr:"
)

func rawKey(id string) []byte {
	return []byte(rawPrefix + id)
}

func rawHashKey(hash string) []byte {
	return []byte(rawHashPrefix + hash)
}

func outcomeKey(rawID string) []byte {
	return []byte(outcomePrefix + rawID)
}
