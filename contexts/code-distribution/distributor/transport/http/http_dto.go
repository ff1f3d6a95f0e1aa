package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AddDistributionRequest struct {
	CodeID        string `json:"code_id"`
	InitializerID string `json:"initializer_id,omitempty"`
}

type AddDistributionResponse struct {
	Status         string `json:"status"`
	DistributorsID string `json:"distributors_id"`
}

type DistributionDTO struct {
	DistributorsID string `json:"distributors_id"`
	CodeID         string `json:"code_id"`
	InitializerID  string `json:"initializer_id"`
	Initializer    string `json:"initializer"`
	AddedAt        string `json:"added_at"`
}

type ListDistributionsResponse struct {
	Items []string `json:"items"`
	Count int      `json:"count"`
}

type InstantiateRequest struct {
	Args string `json:"args,omitempty"`
}

type InstantiateResponse struct {
	Status         string   `json:"status"`
	DistributorsID string   `json:"distributors_id"`
	InstanceID     uint64   `json:"instance_id"`
	Instances      []string `json:"instances"`
	Name           string   `json:"name"`
	Version        string   `json:"version"`
}

type InstanceDTO struct {
	Address        string `json:"address"`
	InstanceID     uint64 `json:"instance_id"`
	DistributorsID string `json:"distributors_id"`
	InstantiatedAt string `json:"instantiated_at"`
}

type CallCheckRequest struct {
	Target   string `json:"target,omitempty"`
	Selector string `json:"selector,omitempty"`
	Instance string `json:"instance"`
	Caller   string `json:"caller"`
	Value    string `json:"value,omitempty"`
	Data     string `json:"data,omitempty"`
}

type BeforeCallResponse struct {
	Status      string `json:"status"`
	CallContext string `json:"call_context"`
}

type AfterCallRequest struct {
	Call             CallCheckRequest `json:"call"`
	BeforeCallResult string           `json:"before_call_result,omitempty"`
}

type AfterCallResponse struct {
	Status string `json:"status"`
}
