package services

import "github.com/localnerve/airtable-forms/internal/airtable"

// RemoteGateway is the subset of the Airtable API the service uses.
// *airtable.Client implements it.
type RemoteGateway interface {
	WhoAmI(token string) (*airtable.WhoAmI, error)
	ListBases(token string) ([]airtable.Base, error)
	ListTables(token, baseID string) ([]airtable.Table, error)
	CreateRecord(token, baseID, table string, fields map[string]interface{}) (*airtable.Record, error)
}
