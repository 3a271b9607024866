// Package openapi infers an OpenAPI v3.0.3 document from a live mux route
// tree and keeps the published response codes honest by observing real
// traffic.
//
// See: https://spec.openapis.org/oas/v3.0.3
//
// # Building a Document
//
// Register routes first, then create a Spec over the router. Every method
// node becomes an operation with an inferred summary, operation id, tag,
// parameters and default responses:
//
//	r := mux.NewRouter()
//	r.Get("/users/{id}", getUser)
//
//	spec, err := openapi.NewSpec(r, openapi.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	doc := spec.Build()
//	// doc.Paths["/users/{id}"].Get.Summary == "Get users by id"
//	// doc.Paths["/users/{id}"].Get.OperationID == "getUsersById"
//
// Build regenerates the document from scratch on every call. An operation
// that fails to generate is replaced with a stub carrying a single
// "Generation error" response and the failure is logged with an error id.
//
// # Annotations
//
// Doc attaches documentation to any node of the tree. Annotations on a
// path node apply to every operation below it and annotations closer to
// the method node win field by field:
//
//	users := r.Route("/users", nil)
//	spec.Doc(users, func(b *openapi.OperationBuilder) {
//	    b.Description("Manage user accounts.")
//	})
//	spec.Doc(r.Post("/users", createUser), func(b *openapi.OperationBuilder) {
//	    b.Summary("Create a user").
//	        JSONRequest(CreateUserInput{}).
//	        JSONResponse(http.StatusCreated, "Created", User{})
//	})
//
// Go types are converted to schemas by reflection. Named structs become
// component schemas referenced with $ref, pointers are nullable and fields
// without omitempty are required. The openapi struct tag adds constraints:
//
//	type User struct {
//	    ID    int    `json:"id" openapi:"description=User ID,example=1"`
//	    Email string `json:"email" openapi:"format=email"`
//	}
//
// # Response Codes
//
// The codes published for an operation come from exactly one source, the
// first that is not empty: a configured preset, the codes observed in live
// traffic, the declared responses, or a default derived from the method.
// ObserveMiddleware feeds the observations:
//
//	r.Use(spec.ObserveMiddleware())
//	spec.Handle(r)
//
// # Serving
//
// Handle registers the JSON and YAML documents and a Swagger UI. The UI
// assets can be replaced with WithAssets.
//
// # Tags
//
// Operations are grouped by the leading literal segments of their path,
// by the module they were registered in, or under a single tag, depending
// on Config.HierarchyMode. Groups are emitted as the x-tagGroups extension.
package openapi
