// Command chq runs queries against a ClickHouse server over HTTP and
// inspects column type descriptions.
package main

import (
	"github.com/fastreports/clickhouse/internal/cli"
)

func main() {
	cli.Execute()
}
