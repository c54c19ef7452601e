package crucible

import (
	"testing"

	"github.com/tinderlang/tinder/value"
)

func TestGetWalksParentChain(t *testing.T) {
	root := New()
	root.ForceSet("x", value.Int(1))
	child := root.Child()
	child.ForceSet("y", value.Int(2))

	if v, ok := child.Get("x"); !ok || !v.Equal(value.Int(1)) {
		t.Fatalf("child.Get(x) = %v, %v, want 1, true", v, ok)
	}
	if v, ok := child.Get("y"); !ok || !v.Equal(value.Int(2)) {
		t.Fatalf("child.Get(y) = %v, %v, want 2, true", v, ok)
	}
	if _, ok := root.Get("y"); ok {
		t.Fatalf("root should not see child's own binding")
	}
}

func TestSetRewritesNearestDefiningFrame(t *testing.T) {
	root := New()
	root.ForceSet("x", value.Int(1))
	child := root.Child()

	if err := child.Set("x", value.Int(99)); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if v, _ := root.Get("x"); !v.Equal(value.Int(99)) {
		t.Fatalf("Set should have rewritten the root frame's x, got %v", v)
	}
	if _, ok := child.vars["x"]; ok {
		t.Fatalf("Set should not have shadowed x in the child frame")
	}
}

func TestSetDefaultsToInnermostFrameWhenUndefined(t *testing.T) {
	root := New()
	child := root.Child()
	if err := child.Set("z", value.Int(5)); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if _, ok := root.Get("z"); ok {
		t.Fatalf("z should not leak into the root frame")
	}
	if v, ok := child.Get("z"); !ok || !v.Equal(value.Int(5)) {
		t.Fatalf("child should hold z, got %v, %v", v, ok)
	}
}

func TestDefineConstRejectsRedeclaration(t *testing.T) {
	c := New()
	if err := c.DefineConst("MAX", value.Int(10)); err != nil {
		t.Fatalf("first DefineConst failed: %v", err)
	}
	if err := c.DefineConst("MAX", value.Int(20)); err == nil {
		t.Fatalf("expected redeclaring a constant to fail")
	}
}

func TestSetRejectsConstantRewrite(t *testing.T) {
	c := New()
	if err := c.DefineConst("MAX", value.Int(10)); err != nil {
		t.Fatalf("DefineConst failed: %v", err)
	}
	if err := c.Set("MAX", value.Int(11)); err == nil {
		t.Fatalf("expected Set on a constant to fail")
	}
}

func TestProtectBlocksScriptWritesButNotForceSet(t *testing.T) {
	c := New()
	c.Protect("SAVE_SLOT")
	if err := c.Set("SAVE_SLOT", value.Int(1)); err == nil {
		t.Fatalf("expected Set on a protected entry to fail")
	}
	c.ForceSet("SAVE_SLOT", value.Int(1))
	v, ok := c.Get("SAVE_SLOT")
	if !ok || !v.Equal(value.Int(1)) {
		t.Fatalf("ForceSet should bypass protection, got %v, %v", v, ok)
	}
}

func TestInitDundersSeedsDefaults(t *testing.T) {
	c := New()
	c.InitDunders()
	for _, name := range []string{"__LINE__", "__STACK__"} {
		if _, ok := c.Get(name); !ok {
			t.Fatalf("InitDunders should have set %s", name)
		}
	}
	if v, _ := c.Get("__LINE__"); !v.Equal(value.Int(0)) {
		t.Fatalf("__LINE__ should default to 0, got %v", v)
	}
	for _, name := range []string{"__CONDITION__", "__JUMPED__"} {
		if _, ok := c.Get(name); ok {
			t.Fatalf("InitDunders should leave %s unset", name)
		}
	}
}

func TestVarsReturnsOwnFrameOnly(t *testing.T) {
	root := New()
	root.ForceSet("a", value.Int(1))
	child := root.Child()
	child.ForceSet("b", value.Int(2))

	vars := child.Vars()
	if _, ok := vars["a"]; ok {
		t.Fatalf("Vars() should not include parent frame bindings")
	}
	if v, ok := vars["b"]; !ok || !v.Equal(value.Int(2)) {
		t.Fatalf("Vars() missing own binding b, got %v, %v", v, ok)
	}

	// Mutating the returned map must not affect the frame itself.
	vars["b"] = value.Int(99)
	if v, _ := child.Get("b"); !v.Equal(value.Int(2)) {
		t.Fatalf("Vars() should return a copy, frame mutated to %v", v)
	}
}

func TestIsDunder(t *testing.T) {
	cases := map[string]bool{
		"__LINE__": true,
		"LINE":     false,
		"__x":      false,
		"x__":      false,
		"_____":    true,
	}
	for name, want := range cases {
		if got := IsDunder(name); got != want {
			t.Fatalf("IsDunder(%q) = %v, want %v", name, got, want)
		}
	}
}
