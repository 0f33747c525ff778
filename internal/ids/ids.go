// Package ids produces sortable, URL-safe identifiers for support ticket
// references and object keys.
package ids

import "github.com/segmentio/ksuid"

func New() string {
	return ksuid.New().String()
}
