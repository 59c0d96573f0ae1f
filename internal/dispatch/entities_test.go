package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractEntitiesNameAndPhone(t *testing.T) {
	got := ExtractEntities("mijn naam is Jan Bakker, 06-12345678, lekkende kraan")
	assert.Equal(t, "Jan Bakker", got.Name)
	assert.Equal(t, "06-12345678", got.Phone)
}

func TestExtractEntitiesPhoneFormats(t *testing.T) {
	cases := []struct {
		name    string
		message string
		want    string
	}{
		{"mobile dashed", "bel me op 06-12345678", "06-12345678"},
		{"mobile plain", "0612345678 is mijn nummer", "0612345678"},
		{"country prefix", "you can reach me at +31 6 12345678", "+31 6 12345678"},
		{"landline", "ons nummer is 020-1234567", "020-1234567"},
		{"no phone", "er is geen nummer in dit bericht", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractEntities(tc.message).Phone)
		})
	}
}

func TestExtractEntitiesNameConstructs(t *testing.T) {
	cases := []struct {
		name    string
		message string
		want    string
	}{
		{"mijn naam is", "mijn naam is Pieter de Vries en de wc is stuk", "Pieter de Vries"},
		{"ik ben", "hallo, ik ben Sanne", "Sanne"},
		{"my name is", "hi, my name is John Smith", "John Smith"},
		{"denylist thuis", "ik ben thuis vanaf drie uur", ""},
		{"denylist not", "I am not sure what is wrong", ""},
		{"no construct", "de afvoer is verstopt", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractEntities(tc.message).Name)
		})
	}
}

func TestExtractEntitiesLocation(t *testing.T) {
	cases := []struct {
		name    string
		message string
		want    string
	}{
		{"postcode", "het adres is 1012 AB in het centrum", "1012 AB"},
		{"postcode no space", "postcode 3511LX", "3511LX"},
		{"city", "ik woon in Utrecht bij het station", "Utrecht"},
		{"street address", "ik woon op de Kerkstraat 12 in het dorp", "Kerkstraat 12"},
		{"no location", "de kraan lekt al dagen", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractEntities(tc.message).Location)
		})
	}
}

func TestExtractEntitiesEmptyMessage(t *testing.T) {
	got := ExtractEntities("")
	assert.True(t, got.IsZero())
}
