package language

import "github.com/sakif/code-runner/internal/apperror"

// starters holds the editor starter code per language: a "hello" program and
// one that reads standard input. Python and JavaScript also get a "function"
// starter that defines and calls a helper.
var starters = map[string]map[string]string{
	"python": {
		"hello":    "print(\"Hello, World!\")\n",
		"function": "def greet(name):\n    return f\"Hello, {name}!\"\n\nprint(greet(\"World\"))\n",
		"input":    "name = input(\"Enter your name: \")\nprint(f\"Hello, {name}!\")\n",
	},
	"javascript": {
		"hello":    "console.log(\"Hello, World!\");\n",
		"function": "function greet(name) {\n  return `Hello, ${name}!`;\n}\n\nconsole.log(greet(\"World\"));\n",
		"input":    "const lines = require(\"fs\").readFileSync(0, \"utf8\").split(\"\\n\");\nconsole.log(`Hello, ${lines[0]}!`);\n",
	},
	"java": {
		"hello": "public class Main {\n    public static void main(String[] args) {\n        System.out.println(\"Hello, World!\");\n    }\n}\n",
		"input": "import java.util.Scanner;\n\npublic class Main {\n    public static void main(String[] args) {\n        Scanner scanner = new Scanner(System.in);\n        String name = scanner.nextLine();\n        System.out.println(\"Hello, \" + name + \"!\");\n    }\n}\n",
	},
	"c": {
		"hello": "#include <stdio.h>\n\nint main(void) {\n    printf(\"Hello, World!\\n\");\n    return 0;\n}\n",
		"input": "#include <stdio.h>\n\nint main(void) {\n    char name[100];\n    scanf(\"%99s\", name);\n    printf(\"Hello, %s!\\n\", name);\n    return 0;\n}\n",
	},
	"cpp": {
		"hello": "#include <iostream>\n\nint main() {\n    std::cout << \"Hello, World!\" << std::endl;\n    return 0;\n}\n",
		"input": "#include <iostream>\n#include <string>\n\nint main() {\n    std::string name;\n    std::getline(std::cin, name);\n    std::cout << \"Hello, \" << name << \"!\" << std::endl;\n    return 0;\n}\n",
	},
	"go": {
		"hello": "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"Hello, World!\")\n}\n",
		"input": "package main\n\nimport (\n\t\"bufio\"\n\t\"fmt\"\n\t\"os\"\n)\n\nfunc main() {\n\tin := bufio.NewScanner(os.Stdin)\n\tin.Scan()\n\tfmt.Printf(\"Hello, %s!\\n\", in.Text())\n}\n",
	},
	"rust": {
		"hello": "fn main() {\n    println!(\"Hello, World!\");\n}\n",
		"input": "use std::io;\n\nfn main() {\n    let mut name = String::new();\n    io::stdin().read_line(&mut name).unwrap();\n    println!(\"Hello, {}!\", name.trim());\n}\n",
	},
	"ruby": {
		"hello": "puts \"Hello, World!\"\n",
		"input": "name = gets.chomp\nputs \"Hello, #{name}!\"\n",
	},
	"php": {
		"hello": "<?php\necho \"Hello, World!\\n\";\n",
		"input": "<?php\n$name = trim(fgets(STDIN));\necho \"Hello, $name!\\n\";\n",
	},
	"bash": {
		"hello": "echo \"Hello, World!\"\n",
		"input": "read -r name\necho \"Hello, $name!\"\n",
	},
	"csharp": {
		"hello": "using System;\n\nclass Program {\n    static void Main() {\n        Console.WriteLine(\"Hello, World!\");\n    }\n}\n",
		"input": "using System;\n\nclass Program {\n    static void Main() {\n        string name = Console.ReadLine();\n        Console.WriteLine($\"Hello, {name}!\");\n    }\n}\n",
	},
}

// Templates returns the starter programs for a language. The returned map is
// a copy and may be modified by the caller.
func (r *Registry) Templates(id string) (map[string]string, error) {
	d, err := r.Resolve(id)
	if err != nil {
		return nil, err
	}
	src, ok := starters[d.ID]
	if !ok {
		return nil, apperror.NotFound("templates", d.ID)
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out, nil
}
