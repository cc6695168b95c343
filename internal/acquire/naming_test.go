// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocate_SuffixSequence(t *testing.T) {
	s := NewRunState()

	var got []string
	for i := 0; i < 5; i++ {
		name, err := s.Allocate("Smith", 2020)
		require.NoError(t, err)
		got = append(got, name)
	}
	assert.Equal(t, []string{
		"Smith_2020.pdf",
		"Smith_2020b.pdf",
		"Smith_2020c.pdf",
		"Smith_2020d.pdf",
		"Smith_2020e.pdf",
	}, got)

	_, err := s.Allocate("Smith", 2020)
	assert.ErrorIs(t, err, ErrNameCollisionOverflow)
	// The failed request does not consume a slot.
	assert.Len(t, s.counts, 1)
	assert.Equal(t, 5, s.counts[nameKey{"Smith", 2020}])
}

func TestAllocate_KeysAreIndependent(t *testing.T) {
	s := NewRunState()

	tests := []struct {
		surname string
		year    int
		want    string
	}{
		{"Lee", 2021, "Lee_2021.pdf"},
		{"Lee", 2022, "Lee_2022.pdf"},
		{"Kim", 2021, "Kim_2021.pdf"},
		{"Lee", 2021, "Lee_2021b.pdf"},
		{"Kim", 2021, "Kim_2021b.pdf"},
		{"Lee", 2022, "Lee_2022b.pdf"},
	}
	for _, tt := range tests {
		got, err := s.Allocate(tt.surname, tt.year)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestAllocate_NormalizedSurnamesShareKey(t *testing.T) {
	s := NewRunState()

	first, err := s.Allocate("van der Berg", 2018)
	require.NoError(t, err)
	second, err := s.Allocate("{van der Berg}", 2018)
	require.NoError(t, err)

	assert.Equal(t, "vanderBerg_2018.pdf", first)
	assert.Equal(t, "vanderBerg_2018b.pdf", second)
}

func TestRunStatesDoNotInterfere(t *testing.T) {
	a, b := NewRunState(), NewRunState()

	_, err := a.Allocate("Jones", 2019)
	require.NoError(t, err)

	got, err := b.Allocate("Jones", 2019)
	require.NoError(t, err)
	assert.Equal(t, "Jones_2019.pdf", got)
}

func TestPeekDoesNotConsume(t *testing.T) {
	s := NewRunState()

	peeked, err := s.Peek("Holden", 2024)
	require.NoError(t, err)
	got, err := s.Allocate("Holden", 2024)
	require.NoError(t, err)
	assert.Equal(t, peeked, got)

	next, err := s.Peek("Holden", 2024)
	require.NoError(t, err)
	assert.Equal(t, "Holden_2024b.pdf", next)
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		name    string
		surname string
		year    int
		ordinal int
		want    string
		wantErr bool
	}{
		{"first", "Smith", 2020, 0, "Smith_2020.pdf", false},
		{"fifth", "Smith", 2020, 4, "Smith_2020e.pdf", false},
		{"sixth", "Smith", 2020, 5, "", true},
		{"missing year", "Smith", 0, 0, "Smith_nd.pdf", false},
		{"missing surname", "", 2020, 1, "Anonymous_2020b.pdf", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OutputName(tt.surname, tt.year, tt.ordinal)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNameCollisionOverflow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeSurname(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Smith", "Smith"},
		{"de la Cruz", "delaCruz"},
		{`{\"O}zel`, "Ozel"},
		{`{\"{o}}zel`, "ozel"},
		{`Garc{\'\i}a`, "Garcia"},
		{`Erd\H{o}s`, "Erdos"},
		{`{\o}stergaard`, "ostergaard"},
		{`Stra{\ss}e`, "Strasse"},
		{"Smith, J.", "Smith"},
		{"O'Brien", "O'Brien"},
		{"AC/DC", "ACDC"},
		{"Müller", "Müller"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSurname(tt.in))
		})
	}
}
