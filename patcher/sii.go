package patcher

import (
	"bytes"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

// Game tools could produce manifests in binary ("BSII") or encrypted
// ("ScsC") form. Neither could be patched as text.
var (
	TypeBinarySII    = filetype.NewType("bsii", "application/x-scs-sii-binary")
	TypeEncryptedSII = filetype.NewType("scsc", "application/x-scs-sii-encrypted")
)

func init() {
	filetype.AddMatcher(TypeBinarySII, func(buf []byte) bool {
		return bytes.HasPrefix(buf, []byte("BSII"))
	})
	filetype.AddMatcher(TypeEncryptedSII, func(buf []byte) bool {
		return bytes.HasPrefix(buf, []byte("ScsC"))
	})
}

// detectBinary sniffs data header and reports if it is something other
// than text.
func detectBinary(data []byte) (types.Type, bool) {
	if len(data) == 0 {
		return filetype.Unknown, false
	}
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return filetype.Unknown, false
	}
	return kind, true
}
