package clickhouse

import (
	"context"
	"database/sql"
	"database/sql/driver"
)

func init() {
	sql.Register("clickhouse", &Driver{})
}

type Driver struct{}

func (d *Driver) Open(name string) (driver.Conn, error) {
	connector, err := d.OpenConnector(name)

	if err != nil {
		return nil, err
	}

	return connector.Connect(context.Background())
}

// OpenConnector parses the connection string, see ParseDSN.
func (d *Driver) OpenConnector(name string) (driver.Connector, error) {
	config, err := ParseDSN(name)

	if err != nil {
		return nil, err
	}

	connector := NewConnector(config)
	connector.driver = d

	return connector, nil
}
