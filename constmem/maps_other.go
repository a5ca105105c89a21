//go:build !linux

package constmem

import "errors"

// Mappings implements MapSource. Only Linux exposes the process mappings.
func (ProcSelf) Mappings() ([]Mapping, error) {
	return nil, errors.New("constmem: process mappings are not available on this platform")
}
