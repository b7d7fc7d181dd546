package airports

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fallbackCatalog() *Catalog {
	return newCatalog(fallbackAirports)
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	c := Load("/nonexistent/airports.csv")
	require.NotNil(t, c)
	assert.GreaterOrEqual(t, c.Size(), 60)

	akl, ok := c.Lookup("akl")
	require.True(t, ok)
	assert.Equal(t, "Auckland", akl.City)
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "airports.csv")
	csv := "code,name,city,country,region,lat,lon\n" +
		"AKL,Auckland Airport,Auckland,New Zealand,Oceania,-37.0082,174.7917\n" +
		"SYD,Sydney Kingsford Smith,Sydney,Australia,Oceania,-33.9461,151.1772\n" +
		"BAD,Broken Row,Nowhere,Nowhere,Nowhere,not-a-number,0\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	c := Load(path)
	assert.Equal(t, 2, c.Size())
	assert.True(t, c.Known("SYD"))
	assert.False(t, c.Known("BAD"))
}

func TestSearchScoring(t *testing.T) {
	t.Parallel()
	c := fallbackCatalog()

	// Exact code beats everything.
	results := c.Search("AKL", 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "AKL", results[0].Code)

	// City prefix match.
	results = c.Search("auck", 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "Auckland", results[0].City)

	// Limit respected.
	results = c.Search("a", 3)
	assert.LessOrEqual(t, len(results), 3)

	assert.Empty(t, c.Search("", 5))
}

func TestNearby(t *testing.T) {
	t.Parallel()
	c := fallbackCatalog()

	// Tokyo's two airports are ~60 km apart.
	results, err := c.Nearby("NRT", 100)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "HND", results[0].Airport.Code)
	assert.Less(t, results[0].DistanceKm, 100.0)

	_, err = c.Nearby("XXX", 100)
	assert.Error(t, err)
}

func TestByCountry(t *testing.T) {
	t.Parallel()
	c := fallbackCatalog()

	nz := c.ByCountry("New Zealand")
	codes := make([]string, len(nz))
	for i, a := range nz {
		codes[i] = a.Code
	}
	assert.Contains(t, codes, "AKL")
	assert.Contains(t, codes, "WLG")
	assert.Contains(t, codes, "CHC")
}

func TestCityCodes(t *testing.T) {
	t.Parallel()
	c := fallbackCatalog()

	tokyo := c.CityCodes("Tokyo")
	assert.ElementsMatch(t, []string{"HND", "NRT"}, tokyo)
}

func TestPreferredCityCode(t *testing.T) {
	t.Parallel()

	code, ok := PreferredCityCode("Tokyo")
	require.True(t, ok)
	assert.Equal(t, "NRT", code)

	_, ok = PreferredCityCode("atlantis")
	assert.False(t, ok)
}
