// Package canopy is a retained-mode 2D scene graph and batching renderer
// built on top of [Ebitengine].
//
// The core of the package is a small set of vocabulary types — vertex
// declarations, vertex buffers, render primitives, vertex batches and a
// Renderer that groups primitives into batches and draws them with as few
// GPU draw calls as possible. Above that core sits a conventional scene
// graph (Node, Scene, Camera) with sprites, shapes, particle emitters and
// text, all of which build and refresh render primitives under the hood.
//
// A minimal program looks like:
//
//	scene := canopy.NewScene()
//	sprite := canopy.NewSprite("player", region)
//	sprite.SetPosition(100, 100)
//	scene.Root().AddChild(sprite)
//	canopy.Run(scene, canopy.RunConfig{Title: "demo", Width: 800, Height: 600})
//
// canopy is single-threaded: all mutation must happen from the update
// callback or before Run is called. Nothing in this package is safe for
// concurrent use from multiple goroutines.
//
// [Ebitengine]: https://ebitengine.org
package canopy
