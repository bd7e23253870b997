package model

// NeedType names a category of help requested in an emergency message.
type NeedType string

const (
	NeedMedicalAid           NeedType = "medical_aid"
	NeedFood                 NeedType = "food"
	NeedWater                NeedType = "water"
	NeedShelter              NeedType = "shelter"
	NeedEvacuation           NeedType = "evacuation"
	NeedRescue               NeedType = "rescue"
	NeedBlankets             NeedType = "blankets"
	NeedClothing             NeedType = "clothing"
	NeedSanitation           NeedType = "sanitation"
	NeedPsychologicalSupport NeedType = "psychological_support"
	NeedOther                NeedType = "other"
)

// NeedTypes lists every known need in declaration order.
var NeedTypes = []NeedType{
	NeedMedicalAid, NeedFood, NeedWater, NeedShelter, NeedEvacuation, NeedRescue,
	NeedBlankets, NeedClothing, NeedSanitation, NeedPsychologicalSupport, NeedOther,
}

// Valid reports whether n is one of the known need types.
func (n NeedType) Valid() bool {
	for _, k := range NeedTypes {
		if k == n {
			return true
		}
	}
	return false
}

// ParseNeedType maps s to a known need. Unknown values map to NeedOther.
func ParseNeedType(s string) NeedType {
	if n := NeedType(s); n.Valid() {
		return n
	}
	return NeedOther
}

// ResourceType names a kind of response unit.
type ResourceType string

const (
	ResourceAmbulance     ResourceType = "ambulance"
	ResourceShelterTeam   ResourceType = "shelter_team"
	ResourceFoodSupplies  ResourceType = "food_supplies"
	ResourceWaterSupplies ResourceType = "water_supplies"
	ResourceRescueTeam    ResourceType = "rescue_team"
	ResourceMedicalTeam   ResourceType = "medical_team"
	ResourceTransport     ResourceType = "transport"
	ResourceSupplies      ResourceType = "supplies"
)

var resourceTypes = []ResourceType{
	ResourceAmbulance, ResourceShelterTeam, ResourceFoodSupplies, ResourceWaterSupplies,
	ResourceRescueTeam, ResourceMedicalTeam, ResourceTransport, ResourceSupplies,
}

func (r ResourceType) Valid() bool {
	for _, k := range resourceTypes {
		if k == r {
			return true
		}
	}
	return false
}

// ResourceStatus is the operational state of a resource.
type ResourceStatus string

const (
	ResourceActive   ResourceStatus = "active"
	ResourceInactive ResourceStatus = "inactive"
	ResourceDeployed ResourceStatus = "deployed"
)

func (s ResourceStatus) Valid() bool {
	switch s {
	case ResourceActive, ResourceInactive, ResourceDeployed:
		return true
	}
	return false
}

// UrgencyLevel is the coarse urgency band of a request.
type UrgencyLevel string

const (
	UrgencyCritical UrgencyLevel = "critical"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyLow      UrgencyLevel = "low"
)

func (u UrgencyLevel) Valid() bool {
	switch u {
	case UrgencyCritical, UrgencyHigh, UrgencyMedium, UrgencyLow:
		return true
	}
	return false
}

// UrgencyForScore derives a level from a composite urgency score.
func UrgencyForScore(score float64) UrgencyLevel {
	switch {
	case score >= 0.75:
		return UrgencyCritical
	case score >= 0.5:
		return UrgencyHigh
	case score >= 0.25:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// RequestStatus is the lifecycle state of an emergency request.
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusProcessing RequestStatus = "processing"
	StatusMatched    RequestStatus = "matched"
	StatusDispatched RequestStatus = "dispatched"
	StatusCompleted  RequestStatus = "completed"
	StatusCancelled  RequestStatus = "cancelled"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusMatched, StatusDispatched, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// MessageSource identifies the channel an emergency message arrived on.
type MessageSource string

const (
	SourceSMS         MessageSource = "sms"
	SourceSocialMedia MessageSource = "social_media"
	SourceChat        MessageSource = "chat"
	SourcePhone       MessageSource = "phone"
	SourceEmail       MessageSource = "email"
	SourceOther       MessageSource = "other"
)

func (s MessageSource) Valid() bool {
	switch s {
	case SourceSMS, SourceSocialMedia, SourceChat, SourcePhone, SourceEmail, SourceOther:
		return true
	}
	return false
}
