package config

import (
	"reflect"
	"testing"

	"github.com/llindqvist/imgtools/internal/dihedral"
)

func TestEffectiveTransformsPlainDefaults(t *testing.T) {
	o := HashOptions{}
	rotate, flip := o.EffectiveTransforms()
	if rotate || flip {
		t.Fatalf("got rotate=%v flip=%v, want both false", rotate, flip)
	}
}

func TestEffectiveTransformsRecordForcesAll(t *testing.T) {
	o := HashOptions{Record: true}
	rotate, flip := o.EffectiveTransforms()
	if !rotate || !flip {
		t.Fatalf("Record should force rotate=flip=true, got %v/%v", rotate, flip)
	}
}

func TestEffectiveTransformsDedupForcesAll(t *testing.T) {
	o := HashOptions{Dedup: true}
	rotate, flip := o.EffectiveTransforms()
	if !rotate || !flip {
		t.Fatalf("Dedup should force rotate=flip=true, got %v/%v", rotate, flip)
	}
}

func TestEffectiveTransformsAllTransForcesAll(t *testing.T) {
	o := HashOptions{AllTrans: true}
	rotate, flip := o.EffectiveTransforms()
	if !rotate || !flip {
		t.Fatalf("AllTrans should force rotate=flip=true, got %v/%v", rotate, flip)
	}
}

func TestEffectiveTransformsHonorsExplicitFlags(t *testing.T) {
	o := HashOptions{Rotate: true}
	rotate, flip := o.EffectiveTransforms()
	if !rotate || flip {
		t.Fatalf("got rotate=%v flip=%v, want true/false", rotate, flip)
	}
}

func TestPlainOrderBaseOnly(t *testing.T) {
	got := PlainOrder(false, false)
	want := []dihedral.Index{dihedral.Base}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("PlainOrder(false,false) = %v, want %v", got, want)
	}
}

func TestPlainOrderRotateOnly(t *testing.T) {
	got := PlainOrder(true, false)
	want := []dihedral.Index{dihedral.Base, dihedral.Rot1, dihedral.Rot2, dihedral.Rot3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("PlainOrder(true,false) = %v, want %v", got, want)
	}
}

func TestPlainOrderFlipOnlyOmitsFlr(t *testing.T) {
	got := PlainOrder(false, true)
	want := []dihedral.Index{dihedral.Base, dihedral.Flip}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("PlainOrder(false,true) = %v, want %v", got, want)
	}
}

func TestPlainOrderRotateAndFlipIncludesFlr(t *testing.T) {
	got := PlainOrder(true, true)
	want := []dihedral.Index{
		dihedral.Base, dihedral.Rot1, dihedral.Rot2, dihedral.Rot3,
		dihedral.Flip, dihedral.Flr1, dihedral.Flr2, dihedral.Flr3,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("PlainOrder(true,true) = %v, want %v", got, want)
	}
}
