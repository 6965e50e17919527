package shader

import (
	"fmt"

	"github.com/gogpu/naga"
)

func (s *shader) Validate() error {
	if _, err := naga.Compile(s.source); err != nil {
		return fmt.Errorf("shader %s: %w", s.key, err)
	}
	return nil
}
