package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dictor/booru"
	"github.com/dictor/booru/custom"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/ssh/terminal"
	"golang.org/x/sync/errgroup"
)

// clients builds one client per configured backend.
func clients(ctx context.Context) ([]*booru.Client, error) {
	opts := []booru.Option{
		booru.WithLogger(Logger),
		booru.WithTransport(booru.NewRestyTransport(Logger)),
	}
	if login, key := viper.GetString("login"), viper.GetString("key"); key != "" {
		opts = append(opts, booru.WithCredentials(booru.Credentials{Login: login, Key: key}))
	}

	var out []*booru.Client
	for _, name := range viper.GetStringSlice("backend") {
		d, err := descriptor(ctx, name)
		if err != nil {
			return nil, err
		}
		c, err := booru.New(d, opts...)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func descriptor(ctx context.Context, name string) (booru.Descriptor, error) {
	host := viper.GetString("host")
	switch strings.ToLower(name) {
	case "szurubooru":
		if host == "" {
			return booru.Descriptor{}, fmt.Errorf("szurubooru needs --host")
		}
		return booru.Szurubooru(host), nil
	case "custom":
		style, err := booru.ParseStyle(viper.GetString("style"))
		if err != nil {
			return booru.Descriptor{}, err
		}
		var opts []custom.Option
		if viper.GetBool("use-http") {
			opts = append(opts, custom.UseHTTP())
		}
		return custom.Discover(ctx, host, style, opts...)
	}
	d, ok := booru.Lookup(name)
	if !ok {
		return booru.Descriptor{}, fmt.Errorf("unknown booru '%s' (known: %s)", name, strings.Join(booru.BackendNames(), ", "))
	}
	return d, nil
}

type action func(ctx context.Context, c *booru.Client) ([]interface{}, error)

// fanOut runs fn against every configured backend and prints what each returns, in backend order.
func fanOut(cmd *cobra.Command, name string, fn action) error {
	ctx := cmd.Context()
	cs, err := clients(ctx)
	if err != nil {
		Logger.WithError(err).Errorln("fail to set up boorus")
		return err
	}

	results, failed := runAll(ctx, cs, name, fn)
	enc := json.NewEncoder(os.Stdout)
	for _, res := range results {
		for _, r := range res {
			if err := enc.Encode(r); err != nil {
				Logger.WithError(err).Errorln("fail to write output")
				return err
			}
		}
	}
	return failed
}

// runAll runs fn against cs concurrently. A failing backend does not stop the
// others; the first failure is returned once all are done.
func runAll(ctx context.Context, cs []*booru.Client, name string, fn action) ([][]interface{}, error) {
	logError := func(c *booru.Client, err error) {
		Logger.WithFields(logrus.Fields{
			"error": err,
			"booru": c.Descriptor().Name,
		}).Errorf("error : %s\n", name)
	}

	results := make([][]interface{}, len(cs))
	var g errgroup.Group
	for i, c := range cs {
		g.Go(func() error {
			res, err := fn(ctx, c)
			if err != nil {
				logError(c, err)
				return err
			}
			results[i] = res
			return nil
		})
	}
	return results, g.Wait()
}

func postsOutput(c *booru.Client, posts ...booru.Post) []interface{} {
	out := make([]interface{}, 0, len(posts))
	for _, p := range posts {
		out = append(out, newPostOutput(c.Descriptor().Name, p))
	}
	return out
}

/*
args = [tags...]
*/
func execRandom(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	return fanOut(cmd, "random", func(ctx context.Context, c *booru.Client) ([]interface{}, error) {
		if limit > 1 {
			posts, err := c.RandomN(ctx, limit, args...)
			return postsOutput(c, posts...), err
		}
		post, err := c.Random(ctx, args...)
		if err != nil {
			return nil, err
		}
		return postsOutput(c, post), nil
	})
}

/*
args = [tags...]
*/
func execLatest(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	return fanOut(cmd, "latest", func(ctx context.Context, c *booru.Client) ([]interface{}, error) {
		var (
			posts []booru.Post
			err   error
		)
		if limit > 0 {
			posts, err = c.LatestN(ctx, limit, args...)
		} else {
			posts, err = c.Latest(ctx, args...)
		}
		return postsOutput(c, posts...), err
	})
}

/*
args = [tags...]
*/
func execCount(cmd *cobra.Command, args []string) error {
	return fanOut(cmd, "count", func(ctx context.Context, c *booru.Client) ([]interface{}, error) {
		n, err := c.Count(ctx, args...)
		if err != nil {
			return nil, err
		}
		return []interface{}{CountOutput{Booru: c.Descriptor().Name, Count: n}}, nil
	})
}

func execPost(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetUint64("id")
	md5, _ := cmd.Flags().GetString("md5")
	if (id == 0) == (md5 == "") {
		err := errors.New("give exactly one of --id and --md5")
		Logger.Errorln(err)
		return err
	}
	return fanOut(cmd, "post", func(ctx context.Context, c *booru.Client) ([]interface{}, error) {
		var (
			post booru.Post
			err  error
		)
		if md5 != "" {
			post, err = c.ByHash(ctx, md5)
		} else {
			post, err = c.ByID(ctx, id)
		}
		if err != nil {
			return nil, err
		}
		return postsOutput(c, post), nil
	})
}

/*
args = [tag]
*/
func execRelated(cmd *cobra.Command, args []string) error {
	return fanOut(cmd, "related", func(ctx context.Context, c *booru.Client) ([]interface{}, error) {
		tags, err := c.Related(ctx, args[0])
		if err != nil {
			return nil, err
		}
		out := make([]interface{}, 0, len(tags))
		for _, t := range tags {
			out = append(out, t)
		}
		return out, nil
	})
}

func execBackends(cmd *cobra.Command, args []string) error {
	enc := json.NewEncoder(os.Stdout)
	backends := booru.Backends()
	for _, name := range booru.BackendNames() {
		if err := enc.Encode(newBackendOutput(backends[name])); err != nil {
			Logger.WithError(err).Errorln("fail to write output")
			return err
		}
	}
	return nil
}

func execLogin(cmd *cobra.Command, args []string) error {
	login := viper.GetString("login")
	password, _ := cmd.Flags().GetString("password")
	save, _ := cmd.Flags().GetBool("save")
	if len(login) < 1 {
		fmt.Print("enter user id : ")
		fmt.Scanln(&login)
	}
	if len(password) < 1 {
		fmt.Print("enter user password : ")
		raw, err := terminal.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			Logger.WithError(err).Errorln("fail to read password")
			return err
		}
		password = string(raw)
	}

	creds, err := booru.NewRestyTransport(Logger).SankakuLogin(cmd.Context(), "", login, password)
	if err != nil {
		Logger.WithError(err).Errorln("fail to log in")
		return err
	}
	if !save {
		fmt.Println(creds.Key)
		return nil
	}
	viper.Set("login", creds.Login)
	viper.Set("key", creds.Key)
	path, err := saveConfig()
	if err != nil {
		Logger.WithError(err).Errorln("fail to save config")
		return err
	}
	Logger.Infof("token saved to %s", path)
	return nil
}
