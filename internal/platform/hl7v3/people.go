package hl7v3

// Person carries a practitioner's name within an AgentPerson.
type Person struct {
	ClassCode      string `xml:"classCode,attr"`
	DeterminerCode string `xml:"determinerCode,attr"`
	Name           *Name  `xml:"name,omitempty"`
}

func NewPerson(name *Name) *Person {
	return &Person{ClassCode: "PSN", DeterminerCode: "INSTANCE", Name: name}
}

// AgentPerson is a clinical professional acting in a role within an
// organisation. The id is the SDS role profile id; the nested person id is
// the professional's SDS user id.
type AgentPerson struct {
	ClassCode               string        `xml:"classCode,attr"`
	ID                      Identifier    `xml:"id"`
	Code                    Code          `xml:"code"`
	Telecom                 []Telecom     `xml:"telecom,omitempty"`
	AgentPerson             *AgentPersonPerson `xml:"agentPerson,omitempty"`
	RepresentedOrganization *Organization `xml:"representedOrganization,omitempty"`
}

func NewAgentPerson(roleProfileID string, jobRole Code) *AgentPerson {
	return &AgentPerson{
		ClassCode: "AGNT",
		ID:        NewSDSRoleProfileIdentifier(roleProfileID),
		Code:      jobRole,
	}
}

// AgentPersonPerson is the person played by an AgentPerson role.
type AgentPersonPerson struct {
	ClassCode      string     `xml:"classCode,attr"`
	DeterminerCode string     `xml:"determinerCode,attr"`
	ID             Identifier `xml:"id"`
	Name           *Name      `xml:"name,omitempty"`
}

func NewAgentPersonPerson(userID string, name *Name) *AgentPersonPerson {
	return &AgentPersonPerson{
		ClassCode:      "PSN",
		DeterminerCode: "INSTANCE",
		ID:             NewSDSUserIdentifier(userID),
		Name:           name,
	}
}

// Organization is an ODS-identified organisation.
type Organization struct {
	ClassCode              string        `xml:"classCode,attr"`
	DeterminerCode         string        `xml:"determinerCode,attr"`
	ID                     Identifier    `xml:"id"`
	Code                   *Code         `xml:"code,omitempty"`
	Name                   *Text         `xml:"name,omitempty"`
	Telecom                *Telecom      `xml:"telecom,omitempty"`
	Addr                   *Address      `xml:"addr,omitempty"`
	HealthCareProviderLicense *HealthCareProviderLicense `xml:"healthCareProviderLicense,omitempty"`
}

func NewOrganization(odsCode, name string) *Organization {
	organization := &Organization{
		ClassCode:      "ORG",
		DeterminerCode: "INSTANCE",
		ID:             NewODSOrganizationIdentifier(odsCode),
	}
	if name != "" {
		organization.Name = &Text{Value: name}
	}
	return organization
}

// HealthCareProviderLicense links an organisation to its parent body.
type HealthCareProviderLicense struct {
	ClassCode    string        `xml:"classCode,attr"`
	Organization *Organization `xml:"Organization,omitempty"`
}

func NewHealthCareProviderLicense(parent *Organization) *HealthCareProviderLicense {
	return &HealthCareProviderLicense{ClassCode: "PROV", Organization: parent}
}

// AgentOrganization is an organisation participating directly in an act.
type AgentOrganization struct {
	ClassCode          string        `xml:"classCode,attr"`
	AgentOrganization  *Organization `xml:"agentOrganization,omitempty"`
}

func NewAgentOrganization(organization *Organization) *AgentOrganization {
	return &AgentOrganization{ClassCode: "AGNT", AgentOrganization: organization}
}

// Patient is the record target of a prescription document, identified by
// NHS number.
type Patient struct {
	ClassCode     string         `xml:"classCode,attr"`
	ID            Identifier     `xml:"id"`
	Addr          []Address      `xml:"addr,omitempty"`
	Telecom       []Telecom      `xml:"telecom,omitempty"`
	PatientPerson *PatientPerson `xml:"patientPerson,omitempty"`
}

func NewPatient(nhsNumber string) *Patient {
	return &Patient{ClassCode: "PAT", ID: NewNHSNumber(nhsNumber)}
}

type PatientPerson struct {
	ClassCode                string      `xml:"classCode,attr"`
	DeterminerCode           string      `xml:"determinerCode,attr"`
	Name                     []Name      `xml:"name,omitempty"`
	AdministrativeGenderCode *Code       `xml:"administrativeGenderCode,omitempty"`
	BirthTime                *Timestamp  `xml:"birthTime,omitempty"`
	PlayedProviderPatient    *ProviderPatient `xml:"playedProviderPatient,omitempty"`
}

func NewPatientPerson() *PatientPerson {
	return &PatientPerson{ClassCode: "PSN", DeterminerCode: "INSTANCE"}
}

// ProviderPatient carries the patient's registered GP organisation.
type ProviderPatient struct {
	ClassCode              string                  `xml:"classCode,attr"`
	SubjectOf              *PatientSubjectOf       `xml:"subjectOf,omitempty"`
}

type PatientSubjectOf struct {
	TypeCode        string           `xml:"typeCode,attr"`
	PatientCareProvision *PatientCareProvision `xml:"patientCareProvision,omitempty"`
}

type PatientCareProvision struct {
	ClassCode   string           `xml:"classCode,attr"`
	MoodCode    string           `xml:"moodCode,attr"`
	Code        Code             `xml:"code"`
	ResponsibleParty *CareProvisionResponsibleParty `xml:"responsibleParty,omitempty"`
}

type CareProvisionResponsibleParty struct {
	TypeCode     string        `xml:"typeCode,attr"`
	HealthCareProvider *HealthCareProvider `xml:"healthCareProvider,omitempty"`
}

type HealthCareProvider struct {
	ClassCode string     `xml:"classCode,attr"`
	ID        Identifier `xml:"id"`
}

// RecordTarget associates a document with its patient.
type RecordTarget struct {
	TypeCode string   `xml:"typeCode,attr"`
	Patient  *Patient `xml:"Patient"`
}

func NewRecordTarget(patient *Patient) *RecordTarget {
	return &RecordTarget{TypeCode: "RCT", Patient: patient}
}

// Author is the agent that authored a document, with the signing time and
// the detached signature written by prepare.
type Author struct {
	TypeCode           string       `xml:"typeCode,attr"`
	ContextControlCode string       `xml:"contextControlCode,attr"`
	Time               *Timestamp   `xml:"time,omitempty"`
	SignatureText      *SignatureText `xml:"signatureText,omitempty"`
	AgentPerson        *AgentPerson `xml:"AgentPerson"`
}

func NewAuthor(agentPerson *AgentPerson) *Author {
	return &Author{TypeCode: "AUT", ContextControlCode: "OP", AgentPerson: agentPerson}
}

// ResponsibleParty is the practitioner clinically responsible for the
// prescription when different from the author.
type ResponsibleParty struct {
	TypeCode           string       `xml:"typeCode,attr"`
	ContextControlCode string       `xml:"contextControlCode,attr"`
	AgentPerson        *AgentPerson `xml:"AgentPerson"`
}

func NewResponsibleParty(agentPerson *AgentPerson) *ResponsibleParty {
	return &ResponsibleParty{TypeCode: "RESP", ContextControlCode: "OP", AgentPerson: agentPerson}
}

// Performer nominates the dispensing site organisation.
type Performer struct {
	TypeCode           string             `xml:"typeCode,attr"`
	ContextControlCode string             `xml:"contextControlCode,attr"`
	AgentOrg           *AgentOrganization `xml:"AgentOrg"`
}

func NewPerformer(agentOrganization *AgentOrganization) *Performer {
	return &Performer{TypeCode: "PRF", ContextControlCode: "OP", AgentOrg: agentOrganization}
}

// LegalAuthenticator is the agent legally responsible for a dispense claim.
type LegalAuthenticator struct {
	TypeCode           string       `xml:"typeCode,attr"`
	ContextControlCode string       `xml:"contextControlCode,attr"`
	Time               *Timestamp   `xml:"time,omitempty"`
	SignatureText      *SignatureText `xml:"signatureText,omitempty"`
	AgentPerson        *AgentPerson `xml:"AgentPerson"`
}

func NewLegalAuthenticator(agentPerson *AgentPerson) *LegalAuthenticator {
	return &LegalAuthenticator{TypeCode: "LA", ContextControlCode: "OP", AgentPerson: agentPerson}
}
