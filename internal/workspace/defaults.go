package workspace

// Built-in starter project, used per field when the store has nothing saved.
const (
	DefaultTitle = "Untitled Project"

	DefaultHTML = "<div class=\"container\">\n  <h1 class=\"neon-text\">¡Bienvenido a CodePer!</h1>\n  <p>¡Mueve el ratón sobre el texto y mira la magia! ✨</p>\n</div>"

	DefaultCSS = "* {\n  margin: 0;\n  padding: 0;\n  box-sizing: border-box;\n}\n\n" +
		"body {\n  display: flex;\n  justify-content: center;\n  align-items: center;\n  height: 100vh;\n  overflow: hidden;\n  background: #1a1a2e;\n  color: #fff;\n  font-family: Arial, sans-serif;\n  perspective: 1000px;\n}\n\n" +
		".container {\n  text-align: center;\n  transform-style: preserve-3d;\n  position: relative;\n}\n\n" +
		"h1 {\n  font-size: 3rem;\n  text-shadow: 0 0 10px #ff0075, 0 0 20px #ff0075, 0 0 30px #ff0075, 0 0 40px #ff0075, 0 0 50px #ff0075, 0 0 60px #ff0075;\n" +
		"  transition: color 0.2s ease, transform 0.2s ease;\n  display: inline-block;\n  cursor: pointer;\n}\n\n" +
		".neon-text:hover {\n  animation: neonGlow 2s infinite alternate;\n  color: #0ff;\n}\n\n" +
		".container p {\n  color: #aaa;\n}\n\n" +
		"@keyframes neonGlow {\n" +
		"  0% {\n" +
		"    text-shadow: 0 0 10px #0ff, 0 0 20px #0ff, 0 0 30px #0ff, 0 0 40px #0ff;\n" +
		"    transform: translateY(-2px) scale(1.05);\n" +
		"  }\n" +
		"  100% {\n" +
		"    text-shadow: 0 0 5px #ff0075, 0 0 10px #ff0075, 0 0 15px #ff0075;\n" +
		"    transform: translateY(2px) scale(0.95);\n" +
		"  }\n" +
		"}\n"

	DefaultJS = "const container = document.querySelector(\".container\");\n\n" +
		"document.addEventListener(\"mousemove\", (event) => {\n" +
		"  const particle = document.createElement(\"div\");\n" +
		"  particle.classList.add(\"particle\");\n" +
		"  particle.style.left = `${event.clientX}px`;\n" +
		"  particle.style.top = `${event.clientY}px`;\n" +
		"  document.body.appendChild(particle);\n\n" +
		"  setTimeout(() => {\n" +
		"    particle.remove();\n" +
		"  }, 1000);\n" +
		"});\n\n" +
		"const styleParticle = document.createElement(\"style\");\n" +
		"styleParticle.innerHTML = `\n" +
		".particle {\n" +
		"  position: absolute;\n" +
		"  width: 8px;\n" +
		"  height: 8px;\n" +
		"  background: radial-gradient(circle, #ff0075, #0ff);\n" +
		"  border-radius: 50%;\n" +
		"  pointer-events: none;\n" +
		"  transform: translate(-50%, -50%);\n" +
		"  animation: particleFade 1s ease-out;\n" +
		"}\n" +
		"@keyframes particleFade {\n" +
		"  0% { transform: scale(1); opacity: 1; }\n" +
		"  100% { transform: scale(0.2); opacity: 0; }\n" +
		"}\n" +
		"`;\n" +
		"document.head.appendChild(styleParticle);\n"
)
