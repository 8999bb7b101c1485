/*
Copyright 2026 The KubeCore Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package main implements corectl, an example CLI that wires a single
// kind's watcher, store, scheduler, and controller together end to end
// against a real apiserver. It exists to demonstrate the wiring, not as
// a product in its own right.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/klog/v2"

	kmeta "github.com/kubecore/runtime/apis/meta"
	"github.com/kubecore/runtime/internal/engine"
	"github.com/kubecore/runtime/pkg/controller"
	"github.com/kubecore/runtime/pkg/transport"
	"github.com/kubecore/runtime/pkg/transport/dynamicclient"
)

// KongVars carries the CLI parser's variable interpolation for defaults.
var KongVars = kong.Vars{ //nolint:gochecknoglobals // Treated as constants.
	"default_resync": "10m",
}

type cli struct {
	Watch watchCommand `cmd:"" help:"Watch a single kind and log every reconcile."`
}

type watchCommand struct {
	Kubeconfig string `env:"KUBECONFIG" help:"Path to a kubeconfig file. Defaults to in-cluster config when unset."`

	Group     string `help:"API group of the kind to watch, empty for the core group."`
	Version   string `help:"API version of the kind to watch."                        required:""`
	Kind      string `help:"Kind name, e.g. Widget."                                  required:""`
	Plural    string `help:"Plural resource name, e.g. widgets."                       required:""`
	Cluster   bool   `help:"Treat the kind as cluster-scoped rather than namespaced."`
	Namespace string `help:"Restrict the watch to a single namespace. Empty watches all namespaces."`

	LabelSelector string        `help:"Label selector applied to the initial list and watch."`
	PageSize      int64         `default:"500" help:"Initial list page size."`
	ResyncPeriod  time.Duration `default:"${default_resync}" help:"How often every known key is re-reconciled even without a change."`

	MaxConcurrentReconciles int `default:"2" help:"Maximum number of reconciles running at once."`
}

func (c *watchCommand) Run(log klog.Logger) error {
	scope := kmeta.Namespaced
	if c.Cluster {
		scope = kmeta.Cluster
	}
	k := kmeta.Kind{Group: c.Group, Version: c.Version, Kind: c.Kind, Plural: c.Plural, Scope: scope}

	cfg, err := clientcmd.BuildConfigFromFlags("", c.Kubeconfig)
	if err != nil {
		return errors.Wrap(err, "cannot load kubeconfig")
	}

	dyn, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return errors.Wrap(err, "cannot create dynamic client")
	}

	t := dynamicclient.New(dyn)
	cache := engine.NewTrackingCache(t, log, engine.NewPrometheusCacheMetrics())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	params := transport.ListParams{LabelSelector: c.LabelSelector, PageSize: c.PageSize, Bookmarks: true}
	s, b := cache.StoreFor(ctx, k, c.Namespace, params)

	reconcile := func(_ context.Context, obj kmeta.Object) (controller.Action, error) {
		log.Info("reconciling", "name", obj.GetName(), "namespace", obj.GetNamespace())
		return controller.RequeueAfter(c.ResyncPeriod), nil
	}

	ctrl := controller.New(s, reconcile, controller.Options{
		Name:                    c.Plural,
		MaxConcurrentReconciles: c.MaxConcurrentReconciles,
		Log:                     log,
		Metrics:                 controller.NewPrometheusMetrics(),
	})
	ctrl.Watches(b, controller.Self(k))

	log.Info("starting controller", "kind", k.GroupVersionKind().String())
	return ctrl.Run(ctx)
}

func main() {
	log := klog.Background()

	c := &cli{}
	ctx := kong.Parse(c,
		kong.Name("corectl"),
		kong.Description("Watches a single Kubernetes kind and reconciles it."),
		kong.Vars(KongVars),
		kong.UsageOnError(),
		kong.BindTo(log, (*klog.Logger)(nil)),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
