package tax

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/faktorino/faktorino/pkg/models"
)

func TestClassify_PhysicalEU(t *testing.T) {
	for _, code := range []string{"DE", "de", "AT", "FR", " it "} {
		result := Classify(code, true)
		assert.Equal(t, StandardRate, result.VATRate, "code %q", code)
		assert.Contains(t, result.TaxNote, "Umsatzsteuer")
	}
}

func TestClassify_PhysicalNonEU(t *testing.T) {
	for _, code := range []string{"US", "CH", "GB", "NO", ""} {
		result := Classify(code, true)
		assert.Equal(t, 0.0, result.VATRate, "code %q", code)
		assert.Contains(t, result.TaxNote, "Ausfuhrlieferung")
	}
}

func TestClassify_DigitalEU(t *testing.T) {
	result := Classify("FR", false)
	assert.Equal(t, 0.0, result.VATRate)
	assert.Contains(t, result.TaxNote, "One-Stop-Shop")
}

func TestClassify_DigitalNonEU(t *testing.T) {
	result := Classify("US", false)
	assert.Equal(t, 0.0, result.VATRate)
	assert.Contains(t, result.TaxNote, "Nicht steuerbare")
}

func TestIsEU(t *testing.T) {
	assert.True(t, IsEU("DE"))
	assert.True(t, IsEU("se"))
	assert.False(t, IsEU("GB")) // left the EU
	assert.False(t, IsEU("CH"))
	assert.False(t, IsEU(""))
	assert.False(t, IsEU("Deutschland")) // only ISO codes match
}

func TestClassifyCountry(t *testing.T) {
	assert.Equal(t, models.ClassificationDomestic, ClassifyCountry("DE"))
	assert.Equal(t, models.ClassificationDomestic, ClassifyCountry(" de "))
	assert.Equal(t, models.ClassificationEU, ClassifyCountry("FR"))
	assert.Equal(t, models.ClassificationThirdState, ClassifyCountry("US"))
	assert.Equal(t, models.ClassificationThirdState, ClassifyCountry(""))
}
