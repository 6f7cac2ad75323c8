package download

import (
	"gitlab.com/NebulousLabs/errors"

	"github.com/shardbridge/core/bridge"
	"github.com/shardbridge/core/model"
)

// pointerPageSize bounds how many pointers are requested per page (spec
// §4.6 step 2 "paginated pointer resolution"). This is an Open Question
// decision (DESIGN.md): the pack carries no discovered page-size constant,
// so a conservative value is chosen to bound a single bridge response.
const pointerPageSize = 64

// pointerPage fetches one page of pointers starting at skip, reporting
// whether a full page came back — a full page means a subsequent page may
// exist and must be requested; a short page (including empty) means this
// was the last one.
func pointerPage(client *bridge.Client, bucketID, fileID, token string, skip int, exclude []string) ([]model.Pointer, bool, error) {
	page, err := client.Pointers(bucketID, fileID, token, skip, pointerPageSize, exclude)
	if err != nil {
		return nil, false, errors.AddContext(err, "download: unable to resolve pointers")
	}
	return page, len(page) == pointerPageSize, nil
}

// resolveFileFromPointers fetches every pointer for fileID in bucketID,
// paging through the bridge's pointer listing until a short page signals
// the end. The returned slice keeps the order the bridge returned the
// pointers in; it is not re-sorted by Pointer.Index. Unlike CreateFileStream, which streams shards to
// the caller as each page arrives, this resolves the whole file's pointer
// list up front — useful to callers that need the complete list before
// doing anything else.
func resolveFileFromPointers(client *bridge.Client, bucketID, fileID, token string, exclude []string) ([]model.Pointer, error) {
	var all []model.Pointer
	skip := 0
	for {
		page, more, err := pointerPage(client, bucketID, fileID, token, skip, exclude)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if !more {
			break
		}
		skip += len(page)
	}
	return all, nil
}
