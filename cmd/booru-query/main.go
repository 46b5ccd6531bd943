package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	Logger  = logrus.New()
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "booru-query",
		Short: "query booru image boards through one interface",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cfgFile)
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/booru-query/config.yaml)")
	flags.StringSliceP("backend", "b", []string{"safebooru"}, "comma seperated booru names, 'custom' or 'szurubooru'")
	flags.String("host", "", "host of a custom or szurubooru booru")
	flags.String("style", "indexphp", "url style of a custom booru (postindex, danbooru, indexphp, szurubooru)")
	flags.Bool("use-http", false, "probe a custom booru over http")
	flags.String("login", "", "user's login")
	flags.String("key", "", "user's api key, password hash or token")
	flags.Bool("debug", false, "print debug log")
	for _, name := range []string{"backend", "host", "style", "use-http", "login", "key", "debug"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	randomCmd := &cobra.Command{
		Use:   "random [tags...]",
		Short: "get random posts",
		RunE:  execRandom,
	}
	randomCmd.Flags().IntP("limit", "n", 1, "number of posts")

	latestCmd := &cobra.Command{
		Use:   "latest [tags...]",
		Short: "get the latest posts",
		RunE:  execLatest,
	}
	latestCmd.Flags().IntP("limit", "n", 0, "number of posts (0 for the booru's default page)")

	postCmd := &cobra.Command{
		Use:   "post",
		Short: "get a post by id or md5",
		RunE:  execPost,
	}
	postCmd.Flags().Uint64("id", 0, "post id")
	postCmd.Flags().String("md5", "", "md5 hash of the post's file")

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "get a sankaku access token",
		RunE:  execLogin,
	}
	loginCmd.Flags().String("password", "", "user's password")
	loginCmd.Flags().Bool("save", false, "write the token to the config file")

	rootCmd.AddCommand(
		randomCmd,
		latestCmd,
		postCmd,
		loginCmd,
		&cobra.Command{
			Use:   "count [tags...]",
			Short: "count posts matching tags",
			RunE:  execCount,
		},
		&cobra.Command{
			Use:   "related <tag>",
			Short: "list tags related to a tag",
			Args:  cobra.ExactArgs(1),
			RunE:  execRelated,
		},
		&cobra.Command{
			Use:   "backends",
			Short: "list built-in boorus and their capabilities",
			RunE:  execBackends,
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
