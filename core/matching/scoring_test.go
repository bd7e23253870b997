package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/crisistriage/core/model"
)

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }

func infoWithNeed(n model.NeedType, conf float64) model.ExtractedInformation {
	return model.ExtractedInformation{
		Needs:                []model.ExtractedNeed{{Type: n, Confidence: conf}},
		ExtractionConfidence: 0.9,
	}
}

func TestSuitabilityBands(t *testing.T) {
	info := infoWithNeed(model.NeedMedicalAid, 0.9)

	amb := model.Resource{Type: model.ResourceAmbulance, Capabilities: []model.NeedType{model.NeedMedicalAid}}
	f := Suitability(amb, info)
	assert.Equal(t, 1.0, f.Score)
	assert.Equal(t, "Perfectly suited: ambulance directly matches medical_aid need with specific capability", f.Explanation)

	team := model.Resource{Type: model.ResourceMedicalTeam}
	f = Suitability(team, info)
	assert.Equal(t, 0.8, f.Score)
	assert.Equal(t, "Well suited: medical_team matches medical_aid need type", f.Explanation)

	info.Needs = append(info.Needs, model.ExtractedNeed{Type: model.NeedFood, Confidence: 0.5})
	food := model.Resource{Type: model.ResourceFoodSupplies, Capabilities: []model.NeedType{model.NeedFood}}
	f = Suitability(food, info)
	assert.Equal(t, 0.4, f.Score)
	assert.Equal(t, "Partially suited: Can address food but not primary need", f.Explanation)

	transport := model.Resource{Type: model.ResourceTransport}
	f = Suitability(transport, info)
	assert.Equal(t, 0.0, f.Score)
	assert.Equal(t, "Not suitable: transport doesn't match medical_aid need", f.Explanation)
}

func TestSuitabilityWithoutNeeds(t *testing.T) {
	f := Suitability(model.Resource{Type: model.ResourceSupplies}, model.ExtractedInformation{})
	assert.Equal(t, 0.5, f.Score)
	assert.Equal(t, "No specific need identified, using general suitability", f.Explanation)
}

func TestAvailabilityBands(t *testing.T) {
	cases := []struct {
		avail, capacity int
		score           float64
		expl            string
	}{
		{0, 4, 0, "Not available: Currently fully deployed"},
		{4, 5, 0.8, "Highly available: 4/5 capacity free"},
		{3, 5, 0.6, "Available: 3/5 capacity free"},
		{1, 4, 0.25, "Limited availability: Only 1/4 capacity free"},
		{1, 10, 0.1, "Severely limited: Only 1/10 capacity remaining"},
	}
	for _, c := range cases {
		f := Availability(model.Resource{Availability: c.avail, Capacity: c.capacity})
		assert.InDelta(t, c.score, f.Score, 1e-9)
		assert.Equal(t, c.expl, f.Explanation)
	}
}

func TestCapacity(t *testing.T) {
	info := model.ExtractedInformation{PeopleAffected: ptrI(4)}
	f := Capacity(model.Resource{Availability: 5}, info)
	assert.Equal(t, 1.0, f.Score)
	assert.Equal(t, "Sufficient capacity: Can serve 5 people (need: 4)", f.Explanation)

	f = Capacity(model.Resource{Availability: 1}, info)
	assert.Equal(t, 0.25, f.Score)
	assert.Equal(t, "Partial capacity: Can serve 1 people (need: 4)", f.Explanation)

	f = Capacity(model.Resource{Availability: 0}, info)
	assert.Equal(t, 0.0, f.Score)
	assert.Equal(t, "No capacity available", f.Explanation)

	f = Capacity(model.Resource{Availability: 1}, model.ExtractedInformation{})
	assert.Equal(t, 1.0, f.Score, "people default to one")
}

func TestDistance(t *testing.T) {
	r := model.Resource{Location: model.ResourceLocation{Latitude: 0, Longitude: 0}}

	f, d := Distance(r, model.ExtractedInformation{})
	assert.Nil(t, d)
	assert.Equal(t, 0.5, f.Score)
	assert.Equal(t, "Location unknown: Cannot calculate distance", f.Explanation)

	info := model.ExtractedInformation{Location: &model.Location{Latitude: ptrF(0.018), Longitude: ptrF(0)}}
	f, d = Distance(r, info)
	if assert.NotNil(t, d) {
		assert.Equal(t, 2.0, *d)
	}
	assert.Equal(t, 1.0, f.Score)
	assert.Equal(t, "Very close: 2.0 km away", f.Explanation)

	info.Location.Latitude = ptrF(1.0)
	f, _ = Distance(r, info)
	assert.Equal(t, 0.1, f.Score)
	assert.Contains(t, f.Explanation, "Very far")
}

func TestExplain(t *testing.T) {
	f := model.MatchingFactors{Suitability: 1, Availability: 0.2, Capacity: 0.5, Distance: 0.5}
	assert.Equal(t,
		"This is a good match (score: 0.61). Strongest factor: suitability (1.00). Limitation: availability (0.20).",
		Explain(0.61, f))

	f = model.MatchingFactors{Suitability: 0.8, Availability: 0.8, Capacity: 1, Distance: 0.8}
	assert.Equal(t, "This is a excellent match (score: 0.85). Strongest factor: capacity (1.00).", Explain(0.85, f))
}

func TestTradeOffs(t *testing.T) {
	f := model.MatchingFactors{Suitability: 1, Availability: 0.3, Capacity: 0.5, Distance: 0.3}
	assert.Equal(t, []string{
		"High suitability but longer distance - faster response vs better match",
		"Limited availability - may need to wait or use partial capacity",
		"Insufficient capacity - may need multiple resources or prioritization",
	}, TradeOffs(f))

	f = model.MatchingFactors{Suitability: 0.4, Availability: 1, Capacity: 1, Distance: 1}
	assert.Equal(t, []string{"Close distance but lower suitability - speed vs capability"}, TradeOffs(f))
	assert.Empty(t, TradeOffs(model.MatchingFactors{Suitability: 1, Availability: 1, Capacity: 1, Distance: 1}))
}

func TestConfidence(t *testing.T) {
	full := model.MatchingFactors{Suitability: 1, Availability: 1, Capacity: 1, Distance: 1}
	assert.Equal(t, 0.9, Confidence(0.9, full))
	weak := full
	weak.Capacity = 0.4
	assert.Equal(t, 0.77, Confidence(0.9, weak))
	weak.Capacity = 0.2
	assert.Equal(t, 0.63, Confidence(0.9, weak))
}

func TestEstimateArrival(t *testing.T) {
	assert.Nil(t, EstimateArrival(model.Resource{ResponseTimeMinutes: 10}, nil))
	assert.Equal(t, 12, *EstimateArrival(model.Resource{ResponseTimeMinutes: 10}, ptrF(2.7)))
	assert.Equal(t, 30, *EstimateArrival(model.Resource{}, ptrF(0)))
}

func TestWeightsValidate(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())
	assert.Error(t, Weights{Suitability: 0.5, Availability: 0.5, Capacity: 0.5}.Validate())
	assert.Error(t, Weights{Suitability: 1.2, Availability: -0.2}.Validate())
}
