package matching

import "github.com/kilianp07/crisistriage/core/model"

// SuitableTypes returns the resource types that directly address need n.
func SuitableTypes(n model.NeedType) []model.ResourceType {
	switch n {
	case model.NeedMedicalAid:
		return []model.ResourceType{model.ResourceAmbulance, model.ResourceMedicalTeam}
	case model.NeedFood:
		return []model.ResourceType{model.ResourceFoodSupplies, model.ResourceSupplies}
	case model.NeedWater:
		return []model.ResourceType{model.ResourceWaterSupplies, model.ResourceSupplies}
	case model.NeedShelter:
		return []model.ResourceType{model.ResourceShelterTeam, model.ResourceSupplies}
	case model.NeedEvacuation:
		return []model.ResourceType{model.ResourceTransport, model.ResourceRescueTeam}
	case model.NeedRescue:
		return []model.ResourceType{model.ResourceRescueTeam, model.ResourceAmbulance}
	case model.NeedBlankets, model.NeedClothing, model.NeedSanitation, model.NeedOther:
		return []model.ResourceType{model.ResourceSupplies}
	case model.NeedPsychologicalSupport:
		return []model.ResourceType{model.ResourceMedicalTeam}
	}
	return nil
}

func typeSuits(t model.ResourceType, n model.NeedType) bool {
	for _, s := range SuitableTypes(n) {
		if s == t {
			return true
		}
	}
	return false
}
