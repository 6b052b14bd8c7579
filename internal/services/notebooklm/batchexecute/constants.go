package batchexecute

const (
	// BatchPath is the batchexecute endpoint relative to the service base URL.
	BatchPath = "/_/LabsTailwindUi/data/batchexecute"
	// ChatPath is the streamed free-form chat endpoint.
	ChatPath = "/_/LabsTailwindUi/data/google.internal.labs.tailwind.orchestration.v1.LabsTailwindOrchestrationService/GenerateFreeFormStreamed"

	// XSSIPrefix guards every response body.
	XSSIPrefix = ")]}'"

	// ResultTag marks a call result tuple inside a decoded frame.
	ResultTag = "wrb.fr"
	// CSRFTag marks a corrected anti-forgery token echoed in a 400 response.
	CSRFTag = "xsrf"
	// AuthFailureCode appears at tuple index 5 when the session is rejected.
	AuthFailureCode = 16

	envelopeMode = "generic"
	transportRT  = "c"
)

// RPC identifiers used by the NotebookLM web client.
const (
	RPCCreateNotebook = "CCqFvf"
	RPCAddSource      = "izAoDd"
	RPCCreateArtifact = "R7cb6c"
	RPCListArtifacts  = "gArtLc"
	RPCListNotebooks  = "wXbhsf"
	RPCGetNotebook    = "rLM1Ne"
	RPCDeleteNotebook = "WWINqb"
)
