package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for gossipledger
var RootCmd = &cobra.Command{
	Use:              "gossipledger",
	Short:            "hashgraph gossip ledger",
	TraverseChildren: true,
}
