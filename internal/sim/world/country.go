package world

import (
	"fmt"

	"nations.ai/internal/protocol"
	"nations.ai/internal/sim/catalogs"
	"nations.ai/internal/sim/resources"
)

// Country is a named owner of a resource bundle. Both apply methods check
// every precondition before touching either bundle.
type Country struct {
	Name      string
	Resources resources.Bundle
}

func NewCountry(name string, res resources.Bundle) *Country {
	return &Country{Name: name, Resources: res.Clone()}
}

func (c *Country) HasResources(required resources.Bundle) bool {
	return c.Resources.HasEnough(required)
}

// ApplyTransform consumes scale×inputs and produces scale×outputs.
func (c *Country) ApplyTransform(tpl *catalogs.Template, scale int) error {
	if tpl == nil {
		return fmt.Errorf("%w: nil template", protocol.ErrInvalidArgument)
	}
	if scale < 0 {
		return fmt.Errorf("%w: negative scale %d for %s", protocol.ErrInvalidArgument, scale, tpl.Name)
	}
	in := tpl.ScaledInputs(scale)
	if !c.HasResources(in) {
		return fmt.Errorf("%w: %s lacks %v for %s x%d", protocol.ErrInsufficientResources, c.Name, in, tpl.Name, scale)
	}
	if err := c.Resources.Add(in, -1); err != nil {
		return err
	}
	return c.Resources.Add(tpl.ScaledOutputs(scale), 1)
}

// ApplyTransfer moves bundle from c to target.
func (c *Country) ApplyTransfer(target *Country, bundle resources.Bundle) error {
	if target == nil {
		return fmt.Errorf("%w: nil transfer target", protocol.ErrInvalidArgument)
	}
	for _, r := range bundle.Resources() {
		if bundle.Quantity(r) < 0 {
			return fmt.Errorf("%w: negative transfer of %s", protocol.ErrInvalidArgument, r)
		}
	}
	if !c.HasResources(bundle) {
		return fmt.Errorf("%w: %s cannot transfer %v to %s", protocol.ErrInsufficientResources, c.Name, bundle, target.Name)
	}
	if err := c.Resources.Add(bundle, -1); err != nil {
		return err
	}
	return target.Resources.Add(bundle, 1)
}

func (c *Country) Clone() *Country {
	return &Country{Name: c.Name, Resources: c.Resources.Clone()}
}
