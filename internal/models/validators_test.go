package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidBloodGroup(t *testing.T) {
	for _, g := range BloodGroups {
		assert.True(t, ValidBloodGroup(g), g)
	}

	for _, g := range []string{"", "C+", "o+", "A", "AB", "O +", "0+"} {
		assert.False(t, ValidBloodGroup(g), g)
	}
}

func TestValidVisibility(t *testing.T) {
	for _, v := range []string{VisibilityPublic, VisibilityRegistered, VisibilityAdmin} {
		assert.True(t, ValidVisibility(v), v)
	}

	for _, v := range []string{"", "everyone", "Public", "private"} {
		assert.False(t, ValidVisibility(v), v)
	}
}

func TestValidContactPreference(t *testing.T) {
	for _, c := range []string{ContactByPhone, ContactByEmail, ContactByChat} {
		assert.True(t, ValidContactPreference(c), c)
	}

	for _, c := range []string{"", "sms", "Phone"} {
		assert.False(t, ValidContactPreference(c), c)
	}
}

func TestValidUrgency(t *testing.T) {
	for _, u := range []string{UrgencyNormal, UrgencyUrgent, UrgencyCritical} {
		assert.True(t, ValidUrgency(u), u)
	}

	for _, u := range []string{"", "high", "low", "URGENT"} {
		assert.False(t, ValidUrgency(u), u)
	}
}

func TestValidInstitutionType(t *testing.T) {
	for _, it := range []string{InstitutionHospital, InstitutionBloodBank, InstitutionClinic, InstitutionNGO} {
		assert.True(t, ValidInstitutionType(it), it)
	}

	for _, it := range []string{"", "pharmacy", "Hospital", "bloodbank"} {
		assert.False(t, ValidInstitutionType(it), it)
	}
}
