package dbclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type ClientType string

const (
	None  ClientType = "None"
	Kusto ClientType = "Kusto"
)

// DbClient interface for storing coverage gap analysis data.
type DbClient interface {
	Store(context context.Context, data *Data) error
}

// Data is one analysis run record.
type Data struct {
	PreciseTimestamp time.Time `json:"preciseTimestamp"` // time send to db
	Repository       string    `json:"repository"`       // repository in owner/name form
	Branch           string    `json:"branch"`           // analyzed branch
	PullRequest      int64     `json:"pullRequest"`      // pull request number, 0 when not PR-driven
	SourceFormat     string    `json:"sourceFormat"`     // coverage report format the data came from
	OverallCoverage  float64   `json:"overallCoverage"`  // overall line coverage percent
	FilesAnalyzed    int64     `json:"filesAnalyzed"`    // files the coverage report contained
	LowCoverageFiles int64     `json:"lowCoverageFiles"` // files selected below the threshold
	TestsGenerated   int64     `json:"testsGenerated"`   // generated test files committed

	Extra map[string]interface{} // extra data that passing accordingly
}

var ErrUnsupportedDBType = errors.New(`supported type are "Kusto", unsupported DB client type`)

type DBOption struct {
	DataCollectionEnabled bool
	DbType                ClientType
	KustoOption           KustoOption
}

func (o *DBOption) Validate() error {
	if !o.DataCollectionEnabled {
		return nil
	}

	if o.DbType == Kusto {
		return o.KustoOption.Validate()
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedDBType, o.DbType)
}

func (o *DBOption) GetDbClient(logger logrus.FieldLogger) (DbClient, error) {
	switch o.DbType {
	case Kusto:
		o.KustoOption.Logger = logger
		return NewKustoClient(&o.KustoOption)
	default:
		return nil, nil
	}
}
