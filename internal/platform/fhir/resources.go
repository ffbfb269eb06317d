package fhir

import (
	"encoding/json"
	"fmt"
)

// Resource is implemented by every typed FHIR resource the gateway handles.
type Resource interface {
	TypeName() string
	ResourceID() string
}

type Base struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id,omitempty"`
}

func (b Base) TypeName() string   { return b.ResourceType }
func (b Base) ResourceID() string { return b.ID }

// Bundle is a FHIR Bundle. Entry order is significant for message bundles:
// the MessageHeader is always first.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Meta         *Meta         `json:"meta,omitempty"`
	Identifier   *Identifier   `json:"identifier,omitempty"`
	Type         string        `json:"type"`
	Timestamp    string        `json:"timestamp,omitempty"`
	Total        *int          `json:"total,omitempty"`
	Entry        []BundleEntry `json:"entry"`
}

func (b *Bundle) TypeName() string   { return "Bundle" }
func (b *Bundle) ResourceID() string { return b.ID }

// BundleEntry pairs a resource with its fullUrl. The fullUrl is always
// urn:uuid:<resource id> for resources minted by the gateway.
type BundleEntry struct {
	FullURL  string   `json:"fullUrl,omitempty"`
	Resource Resource `json:"resource,omitempty"`
}

// UnmarshalJSON decodes the entry resource into its typed representation,
// switching on resourceType. Types the gateway does not model are kept raw.
func (e *BundleEntry) UnmarshalJSON(data []byte) error {
	var envelope struct {
		FullURL  string          `json:"fullUrl"`
		Resource json.RawMessage `json:"resource"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	e.FullURL = envelope.FullURL
	if len(envelope.Resource) == 0 {
		return nil
	}
	resource, err := UnmarshalResource(envelope.Resource)
	if err != nil {
		return err
	}
	e.Resource = resource
	return nil
}

// UnmarshalResource decodes a raw FHIR resource into its typed form.
func UnmarshalResource(data []byte) (Resource, error) {
	var probe struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("fhir: reading resourceType: %w", err)
	}

	var target Resource
	switch probe.ResourceType {
	case "Bundle":
		target = &Bundle{}
	case "MessageHeader":
		target = &MessageHeader{}
	case "MedicationRequest":
		target = &MedicationRequest{}
	case "MedicationDispense":
		target = &MedicationDispense{}
	case "CommunicationRequest":
		target = &CommunicationRequest{}
	case "List":
		target = &List{}
	case "Patient":
		target = &Patient{}
	case "Practitioner":
		target = &Practitioner{}
	case "PractitionerRole":
		target = &PractitionerRole{}
	case "Organization":
		target = &Organization{}
	case "HealthcareService":
		target = &HealthcareService{}
	case "Location":
		target = &Location{}
	case "Provenance":
		target = &Provenance{}
	case "Task":
		target = &Task{}
	case "Claim":
		target = &Claim{}
	case "Parameters":
		target = &Parameters{}
	case "OperationOutcome":
		target = &OperationOutcome{}
	default:
		raw := RawResource{}
		if err := json.Unmarshal(data, &raw.Body); err != nil {
			return nil, err
		}
		raw.ResourceType = probe.ResourceType
		return &raw, nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return nil, fmt.Errorf("fhir: decoding %s: %w", probe.ResourceType, err)
	}
	return target, nil
}

// RawResource holds a resource type the gateway does not translate.
type RawResource struct {
	ResourceType string
	Body         map[string]any
}

func (r *RawResource) TypeName() string { return r.ResourceType }
func (r *RawResource) ResourceID() string {
	id, _ := r.Body["id"].(string)
	return id
}

func (r *RawResource) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Body)
}

// MessageHeader is the first entry of every FHIR message bundle.
type MessageHeader struct {
	Base
	Extension   []Extension        `json:"extension,omitempty"`
	EventCoding Coding             `json:"eventCoding"`
	Sender      *Reference         `json:"sender,omitempty"`
	Source      *MessageSource     `json:"source,omitempty"`
	Destination []MessageDestination `json:"destination,omitempty"`
	Response    *MessageResponse   `json:"response,omitempty"`
	Focus       []Reference        `json:"focus,omitempty"`
}

type MessageSource struct {
	Name     string `json:"name,omitempty"`
	Endpoint string `json:"endpoint"`
}

type MessageDestination struct {
	Endpoint string     `json:"endpoint"`
	Receiver *Reference `json:"receiver,omitempty"`
}

type MessageResponse struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code"`
}

// MedicationRequest is a single prescription line item on the FHIR side.
type MedicationRequest struct {
	Base
	Extension                 []Extension       `json:"extension,omitempty"`
	Identifier                []Identifier      `json:"identifier,omitempty"`
	Status                    string            `json:"status,omitempty"`
	StatusReason              *CodeableConcept  `json:"statusReason,omitempty"`
	Intent                    string            `json:"intent,omitempty"`
	MedicationCodeableConcept *CodeableConcept  `json:"medicationCodeableConcept,omitempty"`
	Subject                   *Reference        `json:"subject,omitempty"`
	AuthoredOn                string            `json:"authoredOn,omitempty"`
	Requester                 *Reference        `json:"requester,omitempty"`
	GroupIdentifier           *GroupIdentifier  `json:"groupIdentifier,omitempty"`
	CourseOfTherapyType       *CodeableConcept  `json:"courseOfTherapyType,omitempty"`
	Note                      []Annotation      `json:"note,omitempty"`
	DosageInstruction         []Dosage          `json:"dosageInstruction,omitempty"`
	DispenseRequest           *DispenseRequest  `json:"dispenseRequest,omitempty"`
	Substitution              *Substitution     `json:"substitution,omitempty"`
}

// GroupIdentifier pairs the short-form prescription id (value) with the
// long-form UUID carried in the PrescriptionId extension. The two always
// travel together.
type GroupIdentifier struct {
	Extension []Extension `json:"extension,omitempty"`
	System    string      `json:"system,omitempty"`
	Value     string      `json:"value,omitempty"`
}

type Annotation struct {
	Text string `json:"text,omitempty"`
}

type DispenseRequest struct {
	Extension              []Extension `json:"extension,omitempty"`
	Quantity               *Quantity   `json:"quantity,omitempty"`
	ValidityPeriod         *Period     `json:"validityPeriod,omitempty"`
	ExpectedSupplyDuration *Quantity   `json:"expectedSupplyDuration,omitempty"`
	NumberOfRepeatsAllowed json.Number `json:"numberOfRepeatsAllowed,omitempty"`
	Performer              *Reference  `json:"performer,omitempty"`
}

type Substitution struct {
	AllowedBoolean bool `json:"allowedBoolean"`
}

// MedicationDispense reports a dispense event against a line item.
type MedicationDispense struct {
	Base
	Extension                 []Extension      `json:"extension,omitempty"`
	Identifier                []Identifier     `json:"identifier,omitempty"`
	Status                    string           `json:"status,omitempty"`
	MedicationCodeableConcept *CodeableConcept `json:"medicationCodeableConcept,omitempty"`
	Subject                   *Reference       `json:"subject,omitempty"`
	Performer                 []DispensePerformer `json:"performer,omitempty"`
	AuthorizingPrescription   []Reference      `json:"authorizingPrescription,omitempty"`
	Type                      *CodeableConcept `json:"type,omitempty"`
	Quantity                  *Quantity        `json:"quantity,omitempty"`
	WhenHandedOver            string           `json:"whenHandedOver,omitempty"`
	DosageInstruction         []Dosage         `json:"dosageInstruction,omitempty"`
}

type DispensePerformer struct {
	Actor *Reference `json:"actor,omitempty"`
}

// CommunicationRequest carries patient-facing information for a prescription.
type CommunicationRequest struct {
	Base
	Status    string                        `json:"status,omitempty"`
	Subject   *Reference                    `json:"subject,omitempty"`
	Payload   []CommunicationRequestPayload `json:"payload,omitempty"`
	Requester *Reference                    `json:"requester,omitempty"`
	Recipient []Reference                   `json:"recipient,omitempty"`
}

type CommunicationRequestPayload struct {
	ContentString    string     `json:"contentString,omitempty"`
	ContentReference *Reference `json:"contentReference,omitempty"`
}

// List carries the medication names parsed out of a repeat prescription's
// additional instructions.
type List struct {
	Base
	Status string      `json:"status,omitempty"`
	Mode   string      `json:"mode,omitempty"`
	Entry  []ListEntry `json:"entry,omitempty"`
}

type ListEntry struct {
	Item Reference `json:"item"`
}

type Patient struct {
	Base
	Identifier           []Identifier   `json:"identifier,omitempty"`
	Name                 []HumanName    `json:"name,omitempty"`
	Telecom              []ContactPoint `json:"telecom,omitempty"`
	Gender               string         `json:"gender,omitempty"`
	BirthDate            string         `json:"birthDate,omitempty"`
	Address              []Address      `json:"address,omitempty"`
	GeneralPractitioner  []Reference    `json:"generalPractitioner,omitempty"`
}

type Practitioner struct {
	Base
	Identifier []Identifier   `json:"identifier,omitempty"`
	Name       []HumanName    `json:"name,omitempty"`
	Telecom    []ContactPoint `json:"telecom,omitempty"`
}

type PractitionerRole struct {
	Base
	Identifier        []Identifier      `json:"identifier,omitempty"`
	Practitioner      *Reference        `json:"practitioner,omitempty"`
	Organization      *Reference        `json:"organization,omitempty"`
	Code              []CodeableConcept `json:"code,omitempty"`
	HealthcareService []Reference       `json:"healthcareService,omitempty"`
	Telecom           []ContactPoint    `json:"telecom,omitempty"`
}

type Organization struct {
	Base
	Identifier []Identifier      `json:"identifier,omitempty"`
	Type       []CodeableConcept `json:"type,omitempty"`
	Name       string            `json:"name,omitempty"`
	Telecom    []ContactPoint    `json:"telecom,omitempty"`
	Address    []Address         `json:"address,omitempty"`
	PartOf     *Reference        `json:"partOf,omitempty"`
}

type HealthcareService struct {
	Base
	Identifier []Identifier   `json:"identifier,omitempty"`
	ProvidedBy *Reference     `json:"providedBy,omitempty"`
	Location   []Reference    `json:"location,omitempty"`
	Name       string         `json:"name,omitempty"`
	Telecom    []ContactPoint `json:"telecom,omitempty"`
}

type Location struct {
	Base
	Identifier []Identifier `json:"identifier,omitempty"`
	Status     string       `json:"status,omitempty"`
	Mode       string       `json:"mode,omitempty"`
	Address    *Address     `json:"address,omitempty"`
}

// Provenance carries the prescription signature as a FHIR resource.
type Provenance struct {
	Base
	Target    []Reference `json:"target,omitempty"`
	Recorded  string      `json:"recorded,omitempty"`
	Agent     []ProvenanceAgent `json:"agent,omitempty"`
	Signature []Signature `json:"signature,omitempty"`
}

type ProvenanceAgent struct {
	Who *Reference `json:"who,omitempty"`
}

// Task drives the dispense workflow actions (release, return, withdraw) and
// the prescription tracker.
type Task struct {
	Base
	Extension       []Extension      `json:"extension,omitempty"`
	Contained       []ContainedResource `json:"contained,omitempty"`
	Identifier      []Identifier     `json:"identifier,omitempty"`
	Status          string           `json:"status,omitempty"`
	StatusReason    *CodeableConcept `json:"statusReason,omitempty"`
	BusinessStatus  *CodeableConcept `json:"businessStatus,omitempty"`
	Intent          string           `json:"intent,omitempty"`
	Code            *CodeableConcept `json:"code,omitempty"`
	GroupIdentifier *Identifier      `json:"groupIdentifier,omitempty"`
	Focus           *Reference       `json:"focus,omitempty"`
	For             *Reference       `json:"for,omitempty"`
	AuthoredOn      string           `json:"authoredOn,omitempty"`
	Requester       *Reference       `json:"requester,omitempty"`
	Owner           *Reference       `json:"owner,omitempty"`
	ReasonCode      *CodeableConcept `json:"reasonCode,omitempty"`
	Input           []TaskInput      `json:"input,omitempty"`
	Output          []TaskOutput     `json:"output,omitempty"`
}

// ContainedResource wraps resources contained inline on a Task.
type ContainedResource struct {
	Resource
}

func (c *ContainedResource) UnmarshalJSON(data []byte) error {
	resource, err := UnmarshalResource(data)
	if err != nil {
		return err
	}
	c.Resource = resource
	return nil
}

func (c ContainedResource) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Resource)
}

type TaskInput struct {
	Extension      []Extension     `json:"extension,omitempty"`
	Type           CodeableConcept `json:"type"`
	ValueReference *Reference      `json:"valueReference,omitempty"`
}

type TaskOutput struct {
	Extension      []Extension     `json:"extension,omitempty"`
	Type           CodeableConcept `json:"type"`
	ValueReference *Reference      `json:"valueReference,omitempty"`
}

// Claim is the reimbursement claim submitted after dispensing completes.
type Claim struct {
	Base
	Extension    []Extension         `json:"extension,omitempty"`
	Contained    []ContainedResource `json:"contained,omitempty"`
	Identifier   []Identifier     `json:"identifier,omitempty"`
	Status       string           `json:"status,omitempty"`
	Type         *CodeableConcept `json:"type,omitempty"`
	Use          string           `json:"use,omitempty"`
	Patient      *Reference       `json:"patient,omitempty"`
	Created      string           `json:"created,omitempty"`
	Provider     *Reference       `json:"provider,omitempty"`
	Priority     *CodeableConcept `json:"priority,omitempty"`
	Prescription *Reference       `json:"prescription,omitempty"`
	Payee        *ClaimPayee      `json:"payee,omitempty"`
	Insurance    []ClaimInsurance `json:"insurance,omitempty"`
	Item         []ClaimItem      `json:"item,omitempty"`
}

type ClaimPayee struct {
	Type  *CodeableConcept `json:"type,omitempty"`
	Party *Reference       `json:"party,omitempty"`
}

type ClaimInsurance struct {
	Sequence json.Number `json:"sequence,omitempty"`
	Focal    bool        `json:"focal"`
	Coverage *Reference  `json:"coverage,omitempty"`
}

type ClaimItem struct {
	Extension        []Extension       `json:"extension,omitempty"`
	Sequence         json.Number       `json:"sequence,omitempty"`
	ProductOrService *CodeableConcept  `json:"productOrService,omitempty"`
	ProgramCode      []CodeableConcept `json:"programCode,omitempty"`
	Detail           []ClaimItemDetail `json:"detail,omitempty"`
}

type ClaimItemDetail struct {
	Extension        []Extension          `json:"extension,omitempty"`
	Sequence         json.Number          `json:"sequence,omitempty"`
	ProductOrService *CodeableConcept     `json:"productOrService,omitempty"`
	Modifier         []CodeableConcept    `json:"modifier,omitempty"`
	ProgramCode      []CodeableConcept    `json:"programCode,omitempty"`
	Quantity         *Quantity            `json:"quantity,omitempty"`
	SubDetail        []ClaimItemSubDetail `json:"subDetail,omitempty"`
}

type ClaimItemSubDetail struct {
	Sequence         json.Number       `json:"sequence,omitempty"`
	ProductOrService *CodeableConcept  `json:"productOrService,omitempty"`
	ProgramCode      []CodeableConcept `json:"programCode,omitempty"`
	Quantity         *Quantity         `json:"quantity,omitempty"`
}

// Parameters is the generic FHIR operation in/out resource.
type Parameters struct {
	Base
	Parameter []Parameter `json:"parameter,omitempty"`
}

type Parameter struct {
	Name            string       `json:"name"`
	ValueString     string       `json:"valueString,omitempty"`
	ValueIdentifier *Identifier  `json:"valueIdentifier,omitempty"`
	ValueCode       string       `json:"valueCode,omitempty"`
	Resource        Resource     `json:"resource,omitempty"`
	Part            []Parameter  `json:"part,omitempty"`
}

func (p *Parameter) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Name            string          `json:"name"`
		ValueString     string          `json:"valueString"`
		ValueIdentifier *Identifier     `json:"valueIdentifier"`
		ValueCode       string          `json:"valueCode"`
		Resource        json.RawMessage `json:"resource"`
		Part            []Parameter     `json:"part"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	p.Name = envelope.Name
	p.ValueString = envelope.ValueString
	p.ValueIdentifier = envelope.ValueIdentifier
	p.ValueCode = envelope.ValueCode
	p.Part = envelope.Part
	if len(envelope.Resource) > 0 {
		resource, err := UnmarshalResource(envelope.Resource)
		if err != nil {
			return err
		}
		p.Resource = resource
	}
	return nil
}

// ResourceParameter returns the resource carried by the named parameter, or
// nil if the parameter is absent.
func (p *Parameters) ResourceParameter(name string) Resource {
	for _, parameter := range p.Parameter {
		if parameter.Name == name {
			return parameter.Resource
		}
	}
	return nil
}

// OperationOutcome reports processing issues back to the caller.
type OperationOutcome struct {
	Base
	Extension []Extension             `json:"extension,omitempty"`
	Issue     []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string           `json:"severity"`
	Code        string           `json:"code"`
	Details     *CodeableConcept `json:"details,omitempty"`
	Diagnostics string           `json:"diagnostics,omitempty"`
	Expression  []string         `json:"expression,omitempty"`
}
