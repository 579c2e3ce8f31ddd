package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain english", "Chiang Mai", "Chiang Mai"},
		{"upper case", "CHIANG MAI", "Chiang Mai"},
		{"thai honorific", "จังหวัดเชียงใหม่", "เชียงใหม่"},
		{"thai abbreviation", "จ. เชียงใหม่", "เชียงใหม่"},
		{"district honorific", "อำเภอแม่ริม", "แม่ริม"},
		{"district abbreviation", "อ.แม่ริม", "แม่ริม"},
		{"changwat prefix", "Changwat Lamphun", "Lamphun"},
		{"amphoe prefix lower", "amphoe mae rim", "Mae Rim"},
		{"province suffix", "Nan Province", "Nan"},
		{"repeated prefixes", "Changwat Province Phrae", "Phrae"},
		{"whitespace runs", "  Mae   Hong\tSon ", "Mae Hong Son"},
		{"muang spelling", "Amphoe Muang Nan", "Mueang Nan"},
		{"ayudhya spelling", "Phra Nakhon Si Ayudhya", "Phra Nakhon Si Ayutthaya"},
		{"word starting with prefix", "Provincetown", "Provincetown"},
		{"bare honorific", "จังหวัด", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.input))
		})
	}
}

func TestNormalizeName_Idempotent(t *testing.T) {
	inputs := []string{
		"จังหวัดจังหวัดเชียงราย",
		"Changwat changwat Tak",
		"MUANG  CHIANG  RAI District",
		"อ. เมืองน่าน",
		"King Amphoe Doi Lo",
		"Khet Bang Rak",
		"uttaradit province province",
		"Kamphaeng-Phet",
		"เชียงใหม่ Chiang Mai",
		"   ",
	}
	for _, in := range inputs {
		once := NormalizeName(in)
		assert.Equal(t, once, NormalizeName(once), "input %q", in)
		assert.Equal(t, NameKey(in), NameKey(once), "input %q", in)
	}
}

func TestNameKey(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"Lop Buri", "Lopburi"},
		{"Kamphaeng Phet", "KAMPHAENG-PHET"},
		{"Changwat Mae Hong Son", "mae hong son"},
		{"Mueang Chiang Mai", "Amphoe Muang Chiang Mai"},
		{"จังหวัดพะเยา", "พะเยา"},
	}
	for _, tt := range tests {
		t.Run(tt.a, func(t *testing.T) {
			assert.Equal(t, NameKey(tt.a), NameKey(tt.b))
		})
	}
	assert.NotEqual(t, NameKey("Nan"), NameKey("Tak"))
}

func TestDecodeLegacyText(t *testing.T) {
	// "ต่ำ" in Windows-874.
	legacy := string([]byte{0xb5, 0xe8, 0xd3})
	assert.Equal(t, "ต่ำ", DecodeLegacyText(legacy))
	assert.Equal(t, "สูง", DecodeLegacyText("สูง"))
}
