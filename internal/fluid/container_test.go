package fluid

import (
	"math"
	"testing"
)

func testRegistry() (*Registry, Type, Type) {
	reg := NewRegistry()
	water := reg.Register(TypeDef{Name: "water", Viscosity: 1, VacuumSpecificVolume: 1, CriticalPressure: 5, SaturationGamma: 2})
	oxygen := reg.Register(TypeDef{Name: "oxygen", Viscosity: 0.2, VacuumSpecificVolume: 10, CriticalPressure: 1, SaturationGamma: 1})
	return reg, water, oxygen
}

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestRebalance_EmptyContainerIsExactlyZero(t *testing.T) {
	reg, _, _ := testRegistry()
	c := newContainer("tank", 10, 10)

	c.rebalance(reg)

	if c.Pressure() != 0 {
		t.Errorf("Expected exactly zero pressure, got %g", c.Pressure())
	}
	if c.OccupiedVolume() != 0 {
		t.Errorf("Expected exactly zero occupied volume, got %g", c.OccupiedVolume())
	}
}

func TestRebalance_VacuumPhase(t *testing.T) {
	reg, water, _ := testRegistry()
	c := newContainer("tank", 10, 10)
	c.elements[water] = &ContainerElement{Mass: 4}

	c.rebalance(reg)

	// 4 mass at vacuum specific volume 1 in a 10-volume container
	if !almostEqual(c.OccupiedVolume(), 4, 1e-12) {
		t.Errorf("Expected occupied volume 4, got %g", c.OccupiedVolume())
	}
	if !almostEqual(c.Pressure(), 0.4, 1e-12) {
		t.Errorf("Expected pressure 0.4, got %g", c.Pressure())
	}
	if !almostEqual(c.elements[water].Volume, 4, 1e-12) {
		t.Errorf("Expected element volume 4, got %g", c.elements[water].Volume)
	}
}

func TestRebalance_VacuumPhase_MixedTypes(t *testing.T) {
	reg, water, oxygen := testRegistry()
	c := newContainer("tank", 100, 10)
	c.elements[water] = &ContainerElement{Mass: 3}
	c.elements[oxygen] = &ContainerElement{Mass: 2}

	c.rebalance(reg)

	// water: 3*1 = 3, oxygen: 2*10 = 20 => 23 of 100
	if !almostEqual(c.OccupiedVolume(), 23, 1e-12) {
		t.Errorf("Expected occupied volume 23, got %g", c.OccupiedVolume())
	}
	if !almostEqual(c.Pressure(), 0.23, 1e-12) {
		t.Errorf("Expected pressure 0.23, got %g", c.Pressure())
	}
}

func TestRebalance_SaturationPhase(t *testing.T) {
	reg, water, _ := testRegistry()
	c := newContainer("tank", 10, 100)
	c.elements[water] = &ContainerElement{Mass: 80}

	c.rebalance(reg)

	// base = 80/10 = 8, above 1: volumes compress to fit MaxVolume
	if !almostEqual(c.OccupiedVolume(), 10, 1e-12) {
		t.Errorf("Expected occupied volume clamped to 10, got %g", c.OccupiedVolume())
	}
	if !almostEqual(c.elements[water].Volume, 10, 1e-12) {
		t.Errorf("Expected compressed element volume 10, got %g", c.elements[water].Volume)
	}

	// water critical pressure 5, gamma 2:
	// saturated = 8 + (8-5) * (10/10) * 2 = 14
	if !almostEqual(c.Pressure(), 14, 1e-12) {
		t.Errorf("Expected saturated pressure 14, got %g", c.Pressure())
	}
}

func TestRebalance_SaturationPhase_BelowCriticalAddsNothing(t *testing.T) {
	reg, water, _ := testRegistry()
	c := newContainer("tank", 10, 100)
	c.elements[water] = &ContainerElement{Mass: 30}

	c.rebalance(reg)

	// base = 3: compressed but below water's critical pressure of 5
	if !almostEqual(c.Pressure(), 3, 1e-12) {
		t.Errorf("Expected pressure 3, got %g", c.Pressure())
	}
}

func TestRebalance_ExplosionRequiresSustainedRise(t *testing.T) {
	reg, water, _ := testRegistry()
	c := newContainer("tank", 10, 2)
	c.elements[water] = &ContainerElement{Mass: 50}

	// First rebalance: pressure jumps above MaxPressure, but the previous
	// pressure was zero, so no explosion yet.
	c.rebalance(reg)
	if c.Exploded() {
		t.Fatal("Expected no explosion on the first over-pressure tick")
	}
	first := c.Pressure()
	if first <= c.MaxPressure {
		t.Fatalf("Test setup: expected pressure above max, got %g", first)
	}

	// Pressure still rising while already above max: explosion.
	c.elements[water].Mass = 60
	c.rebalance(reg)
	if !c.Exploded() {
		t.Error("Expected explosion when pressure keeps rising above max")
	}
}

func TestRebalance_NoExplosionWhenPressureFalls(t *testing.T) {
	reg, water, _ := testRegistry()
	c := newContainer("tank", 10, 2)
	c.elements[water] = &ContainerElement{Mass: 50}

	c.rebalance(reg)

	// Mass drains, pressure falls: no explosion even though both readings
	// are above MaxPressure.
	c.elements[water].Mass = 40
	c.rebalance(reg)
	if c.Exploded() {
		t.Error("Expected no explosion when pressure is falling")
	}
}
