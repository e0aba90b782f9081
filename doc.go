// Package ioc is a dependency injection container that builds and wires an
// object graph on demand, applies per-component caching, pooling, locking and
// scoping policies, and drives start, stop and dispose across the graph in
// dependency order.
//
// # Basic Usage
//
// Create a container, register constructors, and ask for components:
//
//	c := ioc.New(ioc.WithName("app"))
//	c.AddComponent(nil, NewDatabase)
//	c.AddComponent(nil, NewUserService)
//
//	svc, err := ioc.Resolve[*UserService](c)
//
// Dependencies are the constructor's arguments. Each argument is filled by
// looking its type up in the container, first locally and then in the parent
// chain.
//
// # Keys
//
// A component is registered under a key: any comparable value. A nil key
// defaults to the implementation type. Looking a reflect.Type up is a lookup
// by type; any other key is looked up as is. Qualified combines a type and a
// name:
//
//	c.AddComponent(ioc.Qualified{Type: ioc.TypeKey[Store](), Name: "primary"}, NewPostgresStore)
//
// When several local components satisfy a type, the one registered under the
// type itself wins. Otherwise the lookup fails with AmbiguousResolutionError.
//
// # Injection Points
//
// A component may offer several constructors. The one with the most
// arguments that can all be filled is used; among constructors with the same
// number of arguments the first declared wins:
//
//	c.AddComponent(nil, ioc.Constructors(NewClient, NewClientWithTracer))
//
// The choice is remembered per container shape, so repeated instantiation
// does not search the container again until a registry in the chain changes.
//
// # Parameters
//
// Explicit parameters replace the lookup for each argument:
//
//	c.AddComponent("pool", NewPool,
//	    ioc.Constant("postgres://localhost/app"),
//	    ioc.Component("primary"),
//	    ioc.Null,
//	)
//
// Collection fills slice and map arguments with every matching component.
// ForceDefault selects the zero-argument constructor.
//
// # Behaviors
//
// Components are cached by default. Characteristics change that for one
// registration or, with WithCharacteristics, for the whole container:
//
//	c.As(ioc.NoCache).AddComponent(nil, NewRequest)
//	c.As(ioc.Pool(ioc.PoolConfig{MaxSize: 4, Wait: ioc.BlockOnWait})).AddComponent(nil, NewWorker)
//	c.As(ioc.Lock).AddComponent(nil, NewExpensiveClient)
//	c.As(ioc.Store(store)).AddComponent(nil, NewSession)
//
// Stored components keep one instance per Scope. The scope travels in the
// context:
//
//	scope := ioc.NewScope()
//	ctx := ioc.WithScope(ctx, scope)
//	defer scope.Close(ctx)
//	session, err := ioc.ResolveContext[*Session](ctx, c)
//
// # Lifecycle
//
// Components implementing Startable or Disposable follow the container:
//
//	if err := c.Start(ctx); err != nil { ... }
//	defer c.Dispose(ctx)
//	defer c.Stop(ctx)
//
// Start instantiates and starts components with lifecycle, dependencies
// first. Stop and Dispose walk them in reverse. Invalid transitions, such as
// disposing a started container, fail with LifecycleStateConflictError. Lazy
// components join the lifecycle only once they are instantiated.
//
// # Child Containers
//
// A child container sees its parent's components and may shadow them. The
// parent never sees the child's:
//
//	request := c.MakeChildContainer()
//	request.AddInstance("user", currentUser)
//
// The web package builds one such child per HTTP request, and the gin, echo
// and fiber modules do the same for those frameworks.
//
// # Monitoring
//
// A ComponentMonitor is told about every instantiation and lifecycle call.
// The monitors package has implementations for zap and logrus.
//
// # Properties
//
// The config package turns dotenv files, YAML, JSON and command-line
// arguments into containers of properties. Used as a parent, such a
// container fills constructor arguments through config.Property.
//
// # Verification
//
// Verify checks a whole container tree without instantiating anything:
//
//	if err := ioc.Verify(ctx, c); err != nil {
//	    log.Fatal(err)
//	}
package ioc
