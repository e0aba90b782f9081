package ioc

// Module is a group of registrations applied to a container in one step.
type Module func(MutableContainer) error

// NewModule groups registrations under a name. Failures are wrapped in a
// ModuleError naming the module; nested modules keep their own names.
//
//	var StorageModule = ioc.NewModule("storage",
//	    ioc.AddComponent(nil, NewConnection),
//	    ioc.AddComponent("users", NewUserRepository),
//	)
//
//	var AppModule = ioc.NewModule("app",
//	    StorageModule,
//	    ioc.AddInstance("config", cfg),
//	    ioc.AddComponentAs([]ioc.Characteristic{ioc.Lazy}, nil, NewReportJob),
//	)
//
//	err := c.Install(AppModule)
func NewModule(name string, builders ...Module) Module {
	return func(c MutableContainer) error {
		for _, builder := range builders {
			if builder == nil {
				continue
			}

			if err := builder(c); err != nil {
				return ModuleError{Module: name, Cause: err}
			}
		}

		return nil
	}
}

// AddComponent registers impl under key.
func AddComponent(key, impl any, params ...Parameter) Module {
	return func(c MutableContainer) error {
		_, err := c.AddComponent(key, impl, params...)
		return err
	}
}

// AddComponentAs registers impl under key with the given characteristics.
func AddComponentAs(chars []Characteristic, key, impl any, params ...Parameter) Module {
	return func(c MutableContainer) error {
		_, err := c.As(chars...).AddComponent(key, impl, params...)
		return err
	}
}

// AddInstance registers a prebuilt value under key.
func AddInstance(key, value any) Module {
	return func(c MutableContainer) error {
		_, err := c.AddInstance(key, value)
		return err
	}
}

// AddAdapter registers a prebuilt adapter.
func AddAdapter(adapter ComponentAdapter) Module {
	return func(c MutableContainer) error {
		_, err := c.AddAdapter(adapter)
		return err
	}
}

// Child creates a child container and installs modules into it.
func Child(name string, modules ...Module) Module {
	return func(c MutableContainer) error {
		child := c.MakeChildContainer()
		child.SetName(name)
		return child.Install(modules...)
	}
}
